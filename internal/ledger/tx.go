package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/roach88/custody/internal/canonical"
	"github.com/roach88/custody/internal/selector"
)

// Stub is the ledger surface a transaction function consumes.
// *Tx implements it; tests may substitute fakes.
type Stub interface {
	// GetState returns the value at key, or nil if absent.
	GetState(key string) ([]byte, error)

	// PutState writes value at key.
	PutState(key string, value []byte) error

	// GetStateByRange scans keys in [startKey, endKey) in key order.
	// Empty bounds are open: ("", "") scans the whole namespace.
	GetStateByRange(startKey, endKey string) (Iterator[KV], error)

	// GetQueryResult runs a predicate-query descriptor.
	GetQueryResult(query string) (Iterator[KV], error)

	// GetHistoryForKey walks every committed value of key in commit order.
	GetHistoryForKey(key string) (Iterator[Modification], error)

	// GetTxID returns the transaction id.
	GetTxID() string

	// GetTxTimestamp returns the ledger-assigned transaction timestamp.
	GetTxTimestamp() Timestamp
}

// Proposal describes a transaction about to run.
type Proposal struct {
	// Function is the invoked contract function name.
	Function string

	// Creator is the already-resolved identity submitting the transaction.
	Creator string
}

// ErrEmptyKey is returned when a state key is empty.
var ErrEmptyKey = errors.New("key must not be empty")

// Tx is one ledger transaction.
type Tx struct {
	ctx    context.Context
	tx     *sql.Tx
	seq    int64
	id     string
	ts     Timestamp
	writes map[string][]byte
	done   bool
}

var _ Stub = (*Tx)(nil)

// Begin starts a transaction. The transaction id and timestamp are fixed here.
func (l *Ledger) Begin(ctx context.Context, p Proposal) (*Tx, error) {
	id := l.ids.Generate()
	ts := TimestampOf(l.clock.Now())

	sqlTx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	res, err := sqlTx.ExecContext(ctx, `
		INSERT INTO transactions (tx_id, ts_seconds, ts_nanos, creator, function)
		VALUES (?, ?, ?, ?, ?)
	`, id, ts.Seconds, ts.Nanos, p.Creator, p.Function)
	if err != nil {
		sqlTx.Rollback()
		return nil, fmt.Errorf("begin transaction: record %s: %w", id, err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		sqlTx.Rollback()
		return nil, fmt.Errorf("begin transaction: seq: %w", err)
	}

	l.logger.Debug("transaction started", "tx_id", id, "seq", seq, "function", p.Function, "creator", p.Creator)

	return &Tx{
		ctx:    ctx,
		tx:     sqlTx,
		seq:    seq,
		id:     id,
		ts:     ts,
		writes: make(map[string][]byte),
	}, nil
}

// GetTxID returns the transaction id.
func (t *Tx) GetTxID() string {
	return t.id
}

// GetTxTimestamp returns the transaction timestamp.
func (t *Tx) GetTxTimestamp() Timestamp {
	return t.ts
}

// GetState returns the value at key, or nil if absent.
// Reads observe this transaction's own earlier writes.
func (t *Tx) GetState(key string) ([]byte, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	var value []byte
	err := t.tx.QueryRowContext(t.ctx, `SELECT value FROM world_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get state %q: %w", key, err)
	}
	return value, nil
}

// PutState writes value at key and appends it to the key's history.
// A second write to the same key in one transaction replaces the first.
func (t *Tx) PutState(key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	if len(value) == 0 {
		return fmt.Errorf("put state %q: value must not be empty", key)
	}

	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO world_state (key, value, tx_seq)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, tx_seq = excluded.tx_seq
	`, key, string(value), t.seq)
	if err != nil {
		return fmt.Errorf("put state %q: %w", key, err)
	}

	_, err = t.tx.ExecContext(t.ctx, `
		INSERT INTO history (key, tx_seq, value)
		VALUES (?, ?, ?)
		ON CONFLICT(key, tx_seq) DO UPDATE SET value = excluded.value
	`, key, t.seq, string(value))
	if err != nil {
		return fmt.Errorf("put state %q: history: %w", key, err)
	}

	t.writes[key] = append([]byte(nil), value...)
	return nil
}

// GetStateByRange scans keys in [startKey, endKey) ordered by key.
func (t *Tx) GetStateByRange(startKey, endKey string) (Iterator[KV], error) {
	query := `SELECT key, value FROM world_state WHERE key >= ?`
	args := []any{startKey}
	if endKey != "" {
		query += ` AND key < ?`
		args = append(args, endKey)
	}
	query += ` ORDER BY key COLLATE BINARY ASC`

	rows, err := t.tx.QueryContext(t.ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("range scan [%q, %q): %w", startKey, endKey, err)
	}
	return newRowsIterator(rows, scanKV), nil
}

// GetQueryResult parses and runs a predicate-query descriptor.
func (t *Tx) GetQueryResult(query string) (Iterator[KV], error) {
	q, err := selector.Parse(query)
	if err != nil {
		return nil, err
	}

	sqlText, params, err := compileQuery(q)
	if err != nil {
		return nil, err
	}

	rows, err := t.tx.QueryContext(t.ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("predicate query: %w", err)
	}
	return newRowsIterator(rows, scanKV), nil
}

// GetHistoryForKey walks every committed value of key in commit order.
func (t *Tx) GetHistoryForKey(key string) (Iterator[Modification], error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	rows, err := t.tx.QueryContext(t.ctx, `
		SELECT t.tx_id, t.ts_seconds, t.ts_nanos, h.value
		FROM history h
		JOIN transactions t ON h.tx_seq = t.seq
		WHERE h.key = ?
		ORDER BY h.tx_seq ASC
	`, key)
	if err != nil {
		return nil, fmt.Errorf("history for %q: %w", key, err)
	}
	return newRowsIterator(rows, scanModification), nil
}

// Commit records the write-set digest and commits.
func (t *Tx) Commit() error {
	if t.done {
		return fmt.Errorf("commit %s: transaction already finished", t.id)
	}

	digest, err := writeSetDigest(t.writes)
	if err != nil {
		return fmt.Errorf("commit %s: %w", t.id, err)
	}

	if _, err := t.tx.ExecContext(t.ctx,
		`UPDATE transactions SET write_digest = ? WHERE seq = ?`, digest, t.seq); err != nil {
		return fmt.Errorf("commit %s: record digest: %w", t.id, err)
	}

	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", t.id, err)
	}
	t.done = true
	return nil
}

// Rollback discards the transaction. No-op after Commit or Rollback.
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Rollback()
}

// writeSetDigest digests the keys written and the digest of each value.
func writeSetDigest(writes map[string][]byte) (string, error) {
	keys := make([]string, 0, len(writes))
	for k := range writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make(canonical.Array, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, canonical.Object{
			"key":   canonical.String(k),
			"value": canonical.String(canonical.Digest(canonical.DomainRecord, writes[k])),
		})
	}

	data, err := canonical.Marshal(entries)
	if err != nil {
		return "", err
	}
	return canonical.Digest(canonical.DomainWriteSet, data), nil
}
