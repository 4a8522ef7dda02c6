package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/custody/internal/failure"
)

// Marshal produces canonical JSON for v.
// This is the ONLY serialization used for bytes written to the ledger.
//
// v may be a Value, a Go primitive, map[string]any, []any, or anything
// encoding/json can render (structs are rendered first, then re-encoded).
// Floats and nulls fail with an ENCODING failure.
func Marshal(v any) ([]byte, error) {
	val, err := toValue(v)
	if err != nil {
		return nil, failure.Wrap(failure.KindEncoding, "", err, "canonical marshal")
	}
	out, err := encode(val, false)
	if err != nil {
		return nil, failure.Wrap(failure.KindEncoding, "", err, "canonical marshal")
	}
	return out, nil
}

// toValue converts any supported input to a Value.
func toValue(v any) (Value, error) {
	switch val := v.(type) {
	case nil, Value, bool, string, int, int64, json.Number, float32, float64, []any, map[string]any:
		return fromAny(val)
	}

	// Anything else goes through encoding/json so struct tags decide the keys.
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("unsupported type %T: %w", v, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("re-decode %T: %w", v, err)
	}
	return fromAny(raw)
}

// encode writes v as canonical JSON. allowNull controls whether Null is
// written (lenient MarshalJSON) or rejected (Marshal).
func encode(v Value, allowNull bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, v, allowNull); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeValue(buf *bytes.Buffer, v Value, allowNull bool) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case Null:
		if !allowNull {
			return fmt.Errorf("null is forbidden in canonical JSON")
		}
		buf.WriteString("null")
	case String:
		s, err := marshalString(string(val))
		if err != nil {
			return err
		}
		buf.Write(s)
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case Array:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, elem, allowNull); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := marshalString(k)
			if err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeValue(buf, val[k], allowNull); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown value type: %T", v)
	}
	return nil
}

// marshalString produces a canonical JSON string: NFC normalized, no HTML
// escaping, and U+2028/U+2029 written literally. Only control characters,
// backslash and quote are escaped.
func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return nil, err
	}

	out := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	return unescapeLineSeparators(out), nil
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes emitted by
// encoding/json back into literal characters. An escape preceded by an odd
// number of backslashes is literal text (\\u2028) and stays as is.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '\\' && i+5 < len(data) && data[i+1] == 'u' &&
			data[i+2] == '2' && data[i+3] == '0' && data[i+4] == '2' &&
			(data[i+5] == '8' || data[i+5] == '9') {
			backslashes := 0
			for j := len(out) - 1; j >= 0 && out[j] == '\\'; j-- {
				backslashes++
			}
			if backslashes%2 == 0 {
				if data[i+5] == '8' {
					out = append(out, "\u2028"...)
				} else {
					out = append(out, "\u2029"...)
				}
				i += 5
				continue
			}
		}
		out = append(out, data[i])
	}
	return out
}
