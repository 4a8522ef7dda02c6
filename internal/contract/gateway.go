package contract

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/custody/internal/failure"
	"github.com/roach88/custody/internal/ledger"
	"github.com/roach88/custody/internal/metrics"
	"github.com/roach88/custody/internal/seed"
)

// FnSeedCatalog is the function name recorded for catalog seeding.
const FnSeedCatalog = "SeedCatalog"

// Response is the outcome of one gateway call.
type Response struct {
	// TxID is the committed transaction id. Empty for evaluations.
	TxID string `json:"tx_id,omitempty"`

	// Function is the invoked function name.
	Function string `json:"function"`

	// Payload is the function's result string.
	Payload string `json:"payload"`
}

// Gateway binds contract functions to ledger transactions: a submitted
// function commits on success and rolls back on error; an evaluated
// function always rolls back.
type Gateway struct {
	ledger   *ledger.Ledger
	contract *ProductTracking
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewGateway creates a Gateway. logger and m may be nil.
func NewGateway(l *ledger.Ledger, c *ProductTracking, logger *slog.Logger, m *metrics.Metrics) *Gateway {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Gateway{ledger: l, contract: c, logger: logger, metrics: m}
}

// Submit runs name in a transaction that commits on success.
func (g *Gateway) Submit(ctx context.Context, caller, name string, args []string) (Response, error) {
	return g.run(ctx, caller, name, true, func(tc *TxContext) (string, error) {
		return g.contract.Dispatch(tc, name, args)
	})
}

// Evaluate runs name in a transaction that is always rolled back.
func (g *Gateway) Evaluate(ctx context.Context, caller, name string, args []string) (Response, error) {
	return g.run(ctx, caller, name, false, func(tc *TxContext) (string, error) {
		return g.contract.Dispatch(tc, name, args)
	})
}

// Invoke evaluates read-only functions and submits the rest.
func (g *Gateway) Invoke(ctx context.Context, caller, name string, args []string) (Response, error) {
	if Evaluates(name) {
		return g.Evaluate(ctx, caller, name, args)
	}
	return g.Submit(ctx, caller, name, args)
}

// Seed creates every product of cat in one committed transaction.
// The payload is the JSON array of created ids.
func (g *Gateway) Seed(ctx context.Context, caller string, cat *seed.Catalog) (Response, error) {
	return g.run(ctx, caller, FnSeedCatalog, true, func(tc *TxContext) (string, error) {
		ids, err := g.contract.SeedCatalog(tc, cat)
		if err != nil {
			return "", err
		}
		data, err := json.Marshal(ids)
		if err != nil {
			return "", failure.Wrap(failure.KindEncoding, "", err, "encode ids")
		}
		return string(data), nil
	})
}

func (g *Gateway) run(ctx context.Context, caller, name string, commit bool, fn func(*TxContext) (string, error)) (Response, error) {
	start := time.Now()
	resp := Response{Function: name}
	p := ledger.Proposal{Function: name, Creator: caller}

	body := func(tx *ledger.Tx) error {
		logger := g.logger.With("tx_id", tx.GetTxID(), "function", name, "caller", caller)
		payload, err := fn(NewTxContext(tx, caller, logger))
		if err != nil {
			return err
		}
		resp.Payload = payload
		return nil
	}

	var err error
	outcome := metrics.OutcomeEvaluated
	if commit {
		outcome = metrics.OutcomeCommitted
		resp.TxID, err = g.ledger.Submit(ctx, p, body)
	} else {
		err = g.ledger.Evaluate(ctx, p, body)
	}

	if err != nil {
		if failure.KindOf(err) == "" {
			err = failure.Wrap(failure.KindStore, "", err, "ledger transaction")
		}
		g.metrics.ObserveTransaction(name, metrics.OutcomeFailed, start)
		g.logger.Warn("transaction failed", "function", name, "caller", caller,
			"kind", string(failure.KindOf(err)), "error", err)
		return Response{}, err
	}

	g.metrics.ObserveTransaction(name, outcome, start)
	if commit {
		g.logger.Info("transaction committed", "tx_id", resp.TxID, "function", name, "caller", caller)
	}
	return resp, nil
}
