package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/custody/internal/contract"
	"github.com/roach88/custody/internal/failure"
	"github.com/roach88/custody/internal/ledger"
	"github.com/roach88/custody/internal/testutil"
)

// Harness executes one scenario against its own ledger.
type Harness struct {
	ledger  *ledger.Ledger
	gateway *contract.Gateway
	logger  *slog.Logger
}

// Option configures Run.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger routes contract and gateway logs to logger.
// By default they are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Run executes a scenario and returns the result.
//
// Each scenario gets a fresh ledger in a temporary directory that is removed
// afterwards. Execution flow:
//  1. Run setup steps; any failure aborts with an error
//  2. Run steps, recording each in the trace and checking its expect clause
//  3. Evaluate assertions against the ledger and trace
//
// A returned error means the scenario could not be executed; failed
// expectations are reported in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	dir, err := os.MkdirTemp("", "custody-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario directory: %w", err)
	}
	defer os.RemoveAll(dir)

	l, err := ledger.Open(filepath.Join(dir, "ledger.db"),
		ledger.WithClock(testutil.NewStepClock(time.Time{}, time.Second)),
		ledger.WithTxIDs(testutil.NewSequenceIDs("")),
		ledger.WithLogger(o.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario ledger: %w", err)
	}
	defer l.Close()

	h := &Harness{
		ledger:  l,
		gateway: contract.NewGateway(l, contract.New(o.logger, nil), o.logger, nil),
		logger:  o.logger,
	}

	ctx := context.Background()
	result := NewResult()

	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	h.executeSteps(ctx, scenario.Steps, result)

	for _, msg := range EvaluateAssertions(ctx, result, scenario.Assertions, l) {
		result.AddError(msg)
	}

	digest, err := l.StateDigest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute state digest: %w", err)
	}
	result.StateDigest = digest

	return result, nil
}

func (h *Harness) executeSetup(ctx context.Context, setup []Step, result *Result) error {
	for i, step := range setup {
		event, err := h.invoke(ctx, step)
		result.AddTrace(event)
		if err != nil {
			return fmt.Errorf("setup step %d (%s): %w", i, step.Invoke, err)
		}
	}
	return nil
}

// executeSteps runs every step. A failed expectation is recorded and
// execution continues with the next step.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) {
	for i, step := range steps {
		event, err := h.invoke(ctx, step)
		result.AddTrace(event)

		if msg := checkExpect(step, event, err); msg != "" {
			result.AddError(fmt.Sprintf("steps[%d] %s: %s", i, step.Invoke, msg))
		}

		h.logger.Debug("scenario step completed",
			"step", i,
			"function", step.Invoke,
			"outcome", event.Outcome,
		)
	}
}

func (h *Harness) invoke(ctx context.Context, step Step) (TraceEvent, error) {
	caller := step.Caller
	if caller == "" {
		caller = DefaultCaller
	}

	var (
		resp contract.Response
		err  error
	)
	switch step.Mode {
	case ModeSubmit:
		resp, err = h.gateway.Submit(ctx, caller, step.Invoke, step.Args)
	case ModeEvaluate:
		resp, err = h.gateway.Evaluate(ctx, caller, step.Invoke, step.Args)
	default:
		resp, err = h.gateway.Invoke(ctx, caller, step.Invoke, step.Args)
	}

	event := TraceEvent{
		Function: step.Invoke,
		Caller:   caller,
		Args:     step.Args,
		TxID:     resp.TxID,
		Outcome:  OutcomeOK,
		Payload:  resp.Payload,
	}
	if err != nil {
		event.Outcome = string(failure.KindOf(err))
	}
	return event, err
}

// checkExpect returns a description of the first mismatch, or "".
func checkExpect(step Step, event TraceEvent, err error) string {
	e := step.Expect
	if e == nil || e.Error == "" {
		if err != nil {
			return fmt.Sprintf("unexpected error: %v", err)
		}
	}
	if e == nil {
		return ""
	}

	if e.Error != "" {
		if err == nil {
			return fmt.Sprintf("expected error %s, got success", e.Error)
		}
		if got := string(failure.KindOf(err)); got != e.Error {
			return fmt.Sprintf("expected error %s, got %s: %v", e.Error, got, err)
		}
		return ""
	}

	if e.Result != nil && event.Payload != *e.Result {
		return fmt.Sprintf("expected result %q, got %q", *e.Result, event.Payload)
	}

	if e.Fields != nil {
		var obj map[string]any
		if err := json.Unmarshal([]byte(event.Payload), &obj); err != nil {
			return fmt.Sprintf("payload is not a JSON object: %v", err)
		}
		if !matchFields(obj, e.Fields) {
			return fmt.Sprintf("expected fields %v, got %v", e.Fields, obj)
		}
	}

	if e.Count != nil {
		var arr []json.RawMessage
		if err := json.Unmarshal([]byte(event.Payload), &arr); err != nil {
			return fmt.Sprintf("payload is not a JSON array: %v", err)
		}
		if len(arr) != *e.Count {
			return fmt.Sprintf("expected %d results, got %d", *e.Count, len(arr))
		}
	}
	return ""
}
