package canonical

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode/utf16"

	"github.com/roach88/custody/internal/failure"
)

// Value is a sealed interface over the constrained value types.
// Only Null, String, Int, Bool, Array and Object implement it.
// There is no float type: floats break determinism.
type Value interface {
	value()
}

// Null represents a JSON null read back from stored data.
// Marshal rejects it; it exists so lenient decoding stays inside the sealed set.
type Null struct{}

func (Null) value() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String is a string value.
type String string

func (String) value() {}

// Int is an integer value. Always int64.
type Int int64

func (Int) value() {}

// Bool is a boolean value.
type Bool bool

func (Bool) value() {}

// Array is an ordered list of values.
type Array []Value

func (Array) value() {}

// Object maps string keys to values. Use SortedKeys for iteration.
type Object map[string]Value

func (Object) value() {}

// Pair is a key-value pair for Object construction.
type Pair struct {
	Key   string
	Value Value
}

// P is shorthand for Pair.
// Example: ObjectOf(P("origin", String("Italy")), P("units", Int(2)))
func P(key string, v Value) Pair {
	return Pair{Key: key, Value: v}
}

// ObjectOf creates an Object from pairs. Later pairs win on duplicate keys.
func ObjectOf(pairs ...Pair) Object {
	obj := make(Object, len(pairs))
	for _, p := range pairs {
		obj[p.Key] = p.Value
	}
	return obj
}

// SortedKeys returns keys in canonical order (UTF-16 code units).
// Go's native string ordering is UTF-8 byte order, which differs for
// characters outside the BMP.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

// Str returns the string stored under key, or "" if absent or not a string.
func (obj Object) Str(key string) string {
	if s, ok := obj[key].(String); ok {
		return string(s)
	}
	return ""
}

func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// MarshalJSON implements json.Marshaler with canonical key order.
// Null members are written as null so stored data round-trips.
func (obj Object) MarshalJSON() ([]byte, error) {
	return encode(obj, true)
}

// MarshalJSON implements json.Marshaler for Array.
func (arr Array) MarshalJSON() ([]byte, error) {
	return encode(arr, true)
}

// UnmarshalJSON implements json.Unmarshaler for Object.
// Lenient: null members become Null. Floats are rejected.
func (obj *Object) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*obj = make(Object, len(raw))
	for k, v := range raw {
		val, err := decodeRaw(v)
		if err != nil {
			return fmt.Errorf("object key %q: %w", k, err)
		}
		(*obj)[k] = val
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler for Array.
func (arr *Array) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*arr = make(Array, len(raw))
	for i, v := range raw {
		val, err := decodeRaw(v)
		if err != nil {
			return fmt.Errorf("array index %d: %w", i, err)
		}
		(*arr)[i] = val
	}
	return nil
}

// decodeRaw decodes one JSON value, mapping null to Null.
func decodeRaw(data []byte) (Value, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty JSON value")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return String(s), nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return Bool(b), nil
	case 'n':
		return Null{}, nil
	case '[':
		var arr Array
		if err := json.Unmarshal(data, &arr); err != nil {
			return nil, err
		}
		return arr, nil
	case '{':
		var obj Object
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, err
		}
		return obj, nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, err
		}
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("floats are forbidden: %s", string(data))
		}
		return Int(i), nil
	}
}

// Decode parses JSON into a Value with strict validation: null, floats and
// trailing data are rejected with an ENCODING failure.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, failure.Wrap(failure.KindEncoding, "", err, "decode")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, failure.New(failure.KindEncoding, "", "decode: trailing data after JSON value")
	}

	v, err := fromAny(raw)
	if err != nil {
		return nil, failure.Wrap(failure.KindEncoding, "", err, "decode")
	}
	return v, nil
}

// DecodeObject is Decode restricted to a top-level JSON object.
func DecodeObject(data []byte) (Object, error) {
	v, err := Decode(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(Object)
	if !ok {
		return nil, failure.New(failure.KindEncoding, "", "decode: expected a JSON object, got %s", kindName(v))
	}
	return obj, nil
}

// fromAny converts a decoded Go value (json.Number for numbers) to a Value.
// Rejects null and floats.
func fromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, errors.New("null is forbidden")
	case Value:
		if _, isNull := val.(Null); isNull {
			return nil, errors.New("null is forbidden")
		}
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case json.Number:
		s := string(val)
		if strings.ContainsAny(s, ".eE") {
			return nil, fmt.Errorf("floats are forbidden: %s", s)
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", s)
		}
		return Int(n), nil
	case float32, float64:
		return nil, fmt.Errorf("floats are forbidden: %v", val)
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			e, err := fromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = e
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			e, err := fromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = e
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

func kindName(v Value) string {
	switch v.(type) {
	case String:
		return "string"
	case Int:
		return "int"
	case Bool:
		return "bool"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "null"
	}
}
