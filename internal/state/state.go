// Package state is the record store adapter: a thin pass-through to the
// ledger's key-value surface that classifies backend failures.
//
// No retries are performed here; retry policy belongs to the ledger's
// transaction layer.
package state

import (
	"github.com/roach88/custody/internal/failure"
)

// Backend is the subset of the ledger stub the adapter consumes.
type Backend interface {
	GetState(key string) ([]byte, error)
	PutState(key string, value []byte) error
}

// Adapter wraps a Backend.
type Adapter struct {
	backend Backend
}

// New creates an Adapter over backend.
func New(backend Backend) *Adapter {
	return &Adapter{backend: backend}
}

// Get returns the bytes stored at key, or nil if absent.
// Absence is not an error.
func (a *Adapter) Get(key string) ([]byte, error) {
	data, err := a.backend.GetState(key)
	if err != nil {
		return nil, failure.Wrap(failure.KindStore, key, err, "get")
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}

// Put stores value at key.
func (a *Adapter) Put(key string, value []byte) error {
	if err := a.backend.PutState(key, value); err != nil {
		return failure.Wrap(failure.KindStore, key, err, "put")
	}
	return nil
}

// Exists reports whether Get would return non-empty bytes.
func (a *Adapter) Exists(key string) (bool, error) {
	data, err := a.Get(key)
	if err != nil {
		return false, err
	}
	return len(data) > 0, nil
}
