package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"io"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on history.tx_seq for transaction audit queries
const currentSchemaVersion = 1

// Ledger is the SQLite-backed reference ledger.
type Ledger struct {
	db     *sql.DB
	clock  Clock
	ids    TxIDGenerator
	logger *slog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock sets the clock that assigns transaction timestamps.
func WithClock(c Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// WithTxIDs sets the transaction id generator.
func WithTxIDs(g TxIDGenerator) Option {
	return func(l *Ledger) { l.ids = g }
}

// WithLogger sets the logger. Defaults to a discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// Open creates or opens a SQLite ledger at path.
// Applies required pragmas and migrations automatically.
//
// This function is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time; a single connection also
	// serializes transactions, which is the ordering guarantee callers rely on.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	l := &Ledger{
		db:     db,
		clock:  SystemClock{},
		ids:    UUIDv7Generator{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Submit runs fn inside a new transaction and commits it if fn succeeds.
// Any error from fn rolls the transaction back, so no partial write is ever
// visible. Returns the committed transaction's id.
func (l *Ledger) Submit(ctx context.Context, p Proposal, fn func(*Tx) error) (string, error) {
	tx, err := l.Begin(ctx, p)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		l.logger.Debug("transaction aborted", "tx_id", tx.id, "function", p.Function, "error", err)
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return tx.id, nil
}

// Evaluate runs fn inside a transaction that is always rolled back.
// Used for read-only functions.
func (l *Ledger) Evaluate(ctx context.Context, p Proposal, fn func(*Tx) error) error {
	tx, err := l.Begin(ctx, p)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	return fn(tx)
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 indexes history by transaction for the audit log.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_history_tx_seq ON history(tx_seq)`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (l *Ledger) verifyPragma(name, expected string) error {
	var value string
	if err := l.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
