package canonical

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/custody/internal/failure"
)

func TestValueSealed(t *testing.T) {
	var _ Value = Null{}
	var _ Value = String("test")
	var _ Value = Int(42)
	var _ Value = Bool(true)
	var _ Value = Array{String("a"), Int(1)}
	var _ Value = Object{"key": String("value")}
}

func TestSortedKeysOrder(t *testing.T) {
	obj := Object{
		"a":  Int(1),
		"A":  Int(2),
		"aa": Int(3),
		"aA": Int(4),
		"Aa": Int(5),
		"AA": Int(6),
	}

	assert.Equal(t, []string{"A", "AA", "Aa", "a", "aA", "aa"}, obj.SortedKeys())
}

func TestObjectStr(t *testing.T) {
	obj := Object{"name": String("TestCo1"), "units": Int(3)}

	assert.Equal(t, "TestCo1", obj.Str("name"))
	assert.Equal(t, "", obj.Str("units"))
	assert.Equal(t, "", obj.Str("missing"))
}

func TestDecode(t *testing.T) {
	v, err := Decode([]byte(`{"id":"MN1","tags":["a","b"],"units":2,"ok":true}`))
	require.NoError(t, err)

	expected := Object{
		"id":    String("MN1"),
		"tags":  Array{String("a"), String("b")},
		"units": Int(2),
		"ok":    Bool(true),
	}
	assert.Equal(t, expected, v)
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"float", `{"price":1.5}`},
		{"exponent", `{"price":1e2}`},
		{"null", `{"id":null}`},
		{"malformed", `{"id":`},
		{"trailing data", `{"id":"x"} {"id":"y"}`},
		{"trailing brace", `{"id":"x"}}`},
		{"out of range", `{"n":99999999999999999999}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input))
			require.Error(t, err)
			assert.True(t, failure.IsKind(err, failure.KindEncoding), "got %v", err)
		})
	}
}

func TestDecodeObjectRequiresObject(t *testing.T) {
	_, err := DecodeObject([]byte(`["a"]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected a JSON object, got array")

	obj, err := DecodeObject([]byte(`{"origin":"Italy"}`))
	require.NoError(t, err)
	assert.Equal(t, "Italy", obj.Str("origin"))
}

func TestObjectJSONRoundTrip(t *testing.T) {
	type holder struct {
		Details Object `json:"details,omitempty"`
	}

	in := holder{Details: Object{"b": Int(2), "a": Array{Bool(false)}}}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, `{"details":{"a":[false],"b":2}}`, string(data))

	var out holder
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestObjectUnmarshalLenientNull(t *testing.T) {
	var obj Object
	require.NoError(t, json.Unmarshal([]byte(`{"x":null}`), &obj))
	assert.Equal(t, Null{}, obj["x"])

	_, err := Marshal(obj)
	require.Error(t, err, "canonical marshal must still reject null")
}

func TestObjectUnmarshalRejectsFloat(t *testing.T) {
	var obj Object
	err := json.Unmarshal([]byte(`{"x":2.5}`), &obj)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats are forbidden")
}

func TestOmitemptyObject(t *testing.T) {
	type holder struct {
		Details Object `json:"details,omitempty"`
	}
	data, err := json.Marshal(holder{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}
