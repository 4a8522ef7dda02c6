package ledger

import (
	"database/sql"
	"fmt"
)

// Iterator is a lazy, forward-only, single-pass cursor.
//
// Usage follows database/sql.Rows:
//
//	for it.Next() {
//	    item := it.Value()
//	}
//	if err := it.Err(); err != nil { ... }
//	it.Close()
//
// Close releases the underlying cursor and is safe to call more than once.
type Iterator[T any] interface {
	Next() bool
	Value() T
	Err() error
	Close() error
}

// KV is one world-state entry.
type KV struct {
	Key   string
	Value []byte
}

// Modification is one committed value of a key.
type Modification struct {
	TxID      string
	Timestamp Timestamp
	Value     []byte
}

// rowsIterator adapts *sql.Rows to Iterator.
type rowsIterator[T any] struct {
	rows   *sql.Rows
	scan   func(*sql.Rows) (T, error)
	cur    T
	err    error
	closed bool
}

func newRowsIterator[T any](rows *sql.Rows, scan func(*sql.Rows) (T, error)) *rowsIterator[T] {
	return &rowsIterator[T]{rows: rows, scan: scan}
}

func (it *rowsIterator[T]) Next() bool {
	if it.closed || it.err != nil {
		return false
	}
	if !it.rows.Next() {
		if err := it.rows.Err(); err != nil {
			it.err = fmt.Errorf("iterate: %w", err)
		}
		return false
	}
	v, err := it.scan(it.rows)
	if err != nil {
		it.err = err
		return false
	}
	it.cur = v
	return true
}

func (it *rowsIterator[T]) Value() T {
	return it.cur
}

func (it *rowsIterator[T]) Err() error {
	return it.err
}

func (it *rowsIterator[T]) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	return it.rows.Close()
}

func scanKV(rows *sql.Rows) (KV, error) {
	var kv KV
	if err := rows.Scan(&kv.Key, &kv.Value); err != nil {
		return KV{}, fmt.Errorf("scan state: %w", err)
	}
	return kv, nil
}

func scanModification(rows *sql.Rows) (Modification, error) {
	var m Modification
	if err := rows.Scan(&m.TxID, &m.Timestamp.Seconds, &m.Timestamp.Nanos, &m.Value); err != nil {
		return Modification{}, fmt.Errorf("scan history: %w", err)
	}
	return m, nil
}
