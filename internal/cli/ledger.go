package cli

import (
	"encoding/json"

	"github.com/roach88/custody/internal/contract"
	"github.com/roach88/custody/internal/ledger"
)

// openLedger opens the ledger named by --db.
func openLedger(opts *RootOptions) (*ledger.Ledger, error) {
	l, err := ledger.Open(opts.Database, ledger.WithLogger(opts.Logger))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	opts.Logger.Debug("ledger opened", "path", opts.Database)
	return l, nil
}

func newGateway(opts *RootOptions, l *ledger.Ledger) *contract.Gateway {
	return contract.NewGateway(l, contract.New(opts.Logger, opts.Metrics), opts.Logger, opts.Metrics)
}

// payloadData embeds JSON payloads as-is in JSON output and keeps anything
// else as a string.
func payloadData(payload string) any {
	if payload != "" && json.Valid([]byte(payload)) {
		return json.RawMessage(payload)
	}
	return payload
}
