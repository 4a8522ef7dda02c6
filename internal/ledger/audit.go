package ledger

import (
	"context"
	"fmt"

	"github.com/roach88/custody/internal/canonical"
)

// TxRecord is one committed transaction as recorded in the log.
type TxRecord struct {
	Seq         int64     `json:"seq"`
	TxID        string    `json:"tx_id"`
	Timestamp   Timestamp `json:"timestamp"`
	Creator     string    `json:"creator"`
	Function    string    `json:"function"`
	WriteDigest string    `json:"write_digest"`
}

// Transactions returns every committed transaction in commit order.
func (l *Ledger) Transactions(ctx context.Context) ([]TxRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT seq, tx_id, ts_seconds, ts_nanos, creator, function, write_digest
		FROM transactions
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []TxRecord
	for rows.Next() {
		var r TxRecord
		if err := rows.Scan(&r.Seq, &r.TxID, &r.Timestamp.Seconds, &r.Timestamp.Nanos,
			&r.Creator, &r.Function, &r.WriteDigest); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// StateDigest digests the whole world state. Two ledgers that applied the
// same transactions in the same order produce the same digest.
func (l *Ledger) StateDigest(ctx context.Context) (string, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT key, value FROM world_state ORDER BY key COLLATE BINARY ASC`)
	if err != nil {
		return "", fmt.Errorf("state digest: %w", err)
	}
	defer rows.Close()

	entries := canonical.Array{}
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return "", fmt.Errorf("state digest: scan: %w", err)
		}
		entries = append(entries, canonical.Object{
			"key":   canonical.String(key),
			"value": canonical.String(canonical.Digest(canonical.DomainRecord, value)),
		})
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("state digest: iterate: %w", err)
	}

	data, err := canonical.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("state digest: %w", err)
	}
	return canonical.Digest(canonical.DomainState, data), nil
}
