package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/custody/internal/failure"
)

type memBackend struct {
	data   map[string][]byte
	getErr error
	putErr error
}

func newMemBackend() *memBackend {
	return &memBackend{data: make(map[string][]byte)}
}

func (m *memBackend) GetState(key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.data[key], nil
}

func (m *memBackend) PutState(key string, value []byte) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.data[key] = value
	return nil
}

func TestAdapter_GetPutExists(t *testing.T) {
	a := New(newMemBackend())

	v, err := a.Get("P1")
	require.NoError(t, err)
	assert.Nil(t, v)

	ok, err := a.Exists("P1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Put("P1", []byte(`{"id":"P1"}`)))

	v, err = a.Get("P1")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"P1"}`, string(v))

	ok, err = a.Exists("P1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAdapter_EmptyValueIsAbsent(t *testing.T) {
	b := newMemBackend()
	b.data["P1"] = []byte{}
	a := New(b)

	v, err := a.Get("P1")
	require.NoError(t, err)
	assert.Nil(t, v)

	ok, err := a.Exists("P1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdapter_BackendFailuresAreStoreErrors(t *testing.T) {
	cause := errors.New("disk on fire")

	tests := []struct {
		name string
		call func(a *Adapter) error
		b    *memBackend
	}{
		{
			name: "get",
			b:    &memBackend{getErr: cause},
			call: func(a *Adapter) error { _, err := a.Get("K"); return err },
		},
		{
			name: "exists",
			b:    &memBackend{getErr: cause},
			call: func(a *Adapter) error { _, err := a.Exists("K"); return err },
		},
		{
			name: "put",
			b:    &memBackend{putErr: cause},
			call: func(a *Adapter) error { return a.Put("K", []byte("1")) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call(New(tt.b))
			require.Error(t, err)
			assert.True(t, failure.IsKind(err, failure.KindStore))
			assert.ErrorIs(t, err, cause)
		})
	}
}
