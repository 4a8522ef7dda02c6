// Package contract exposes the invokable product-tracking operations.
//
// Each operation receives an explicit *TxContext carrying the ledger stub
// for the current transaction and the caller's already-resolved identity.
// Operations validate their arguments, then delegate to the lifecycle
// engine (writes and single reads) or the query aggregator (multi-record
// reads). The Gateway binds operations to ledger transactions.
package contract

import (
	"io"
	"log/slog"
	"time"

	"github.com/roach88/custody/internal/ledger"
	"github.com/roach88/custody/internal/product"
	"github.com/roach88/custody/internal/state"
)

// TxContext is the per-transaction context passed to every operation.
type TxContext struct {
	// Stub is the ledger surface of the current transaction.
	Stub ledger.Stub

	// Caller is the identity submitting the transaction.
	Caller string

	// Logger is scoped to the transaction.
	Logger *slog.Logger
}

// NewTxContext creates a TxContext. A nil logger discards output.
func NewTxContext(stub ledger.Stub, caller string, logger *slog.Logger) *TxContext {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &TxContext{Stub: stub, Caller: caller, Logger: logger}
}

// engine builds the lifecycle engine for this transaction. Writes are
// stamped with the ledger-assigned transaction timestamp.
func (tc *TxContext) engine() *product.Engine {
	return product.NewEngine(state.New(tc.Stub), product.ClockFunc(func() time.Time {
		return tc.Stub.GetTxTimestamp().Time()
	}))
}
