package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/custody/internal/ledger"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %v -> %s\n", event.Step, event.Function, event.Args, event.Outcome)
		}
	}

	return buf.String()
}

// assertTraceOrder checks that functions were first invoked in the given
// order. Other steps may appear in between.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if positions[event.Function] == 0 {
			positions[event.Function] = i + 1
		}
	}

	for _, fn := range assertion.Functions {
		if positions[fn] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all functions present: %v", assertion.Functions),
				Actual:   fmt.Sprintf("missing function: %s", fn),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Functions); i++ {
		prev := assertion.Functions[i-1]
		curr := assertion.Functions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("functions in order: %v", assertion.Functions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks that function was invoked exactly Count times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Function == assertion.Function {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d invocations of %s", assertion.Count, assertion.Function),
			Actual:   fmt.Sprintf("%d invocations", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks that the record stored at Key contains the
// expected fields (subset match).
func assertFinalState(ctx context.Context, l *ledger.Ledger, assertion Assertion) error {
	var value []byte
	err := l.Evaluate(ctx, ledger.Proposal{Function: "assert:" + AssertFinalState}, func(tx *ledger.Tx) error {
		v, err := tx.GetState(assertion.Key)
		value = v
		return err
	})
	if err != nil {
		return fmt.Errorf("final_state %s: %w", assertion.Key, err)
	}

	if value == nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("record at %s", assertion.Key),
			Actual:   "key not found",
		}
	}

	var actual map[string]any
	if err := json.Unmarshal(value, &actual); err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("JSON object at %s", assertion.Key),
			Actual:   fmt.Sprintf("%q", value),
		}
	}

	for key, expected := range assertion.Expect {
		got, ok := actual[key]
		if !ok {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in %s", key, value),
			}
		}
		if !valuesEqual(got, expected) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v", key, expected),
				Actual:   fmt.Sprintf("field %q = %v", key, got),
			}
		}
	}
	return nil
}

// assertHistoryCount checks the number of modifications recorded for Key.
func assertHistoryCount(ctx context.Context, l *ledger.Ledger, assertion Assertion) error {
	count := 0
	err := l.Evaluate(ctx, ledger.Proposal{Function: "assert:" + AssertHistoryCount}, func(tx *ledger.Tx) error {
		it, err := tx.GetHistoryForKey(assertion.Key)
		if err != nil {
			return err
		}
		defer it.Close()
		for it.Next() {
			count++
		}
		return it.Err()
	})
	if err != nil {
		return fmt.Errorf("history_count %s: %w", assertion.Key, err)
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertHistoryCount,
			Expected: fmt.Sprintf("%d modifications of %s", assertion.Count, assertion.Key),
			Actual:   fmt.Sprintf("%d modifications", count),
		}
	}
	return nil
}

// assertTxCount checks the number of committed transactions.
func assertTxCount(ctx context.Context, l *ledger.Ledger, assertion Assertion) error {
	txs, err := l.Transactions(ctx)
	if err != nil {
		return fmt.Errorf("tx_count: %w", err)
	}
	if len(txs) != assertion.Count {
		return &AssertionError{
			Type:     AssertTxCount,
			Expected: fmt.Sprintf("%d committed transactions", assertion.Count),
			Actual:   fmt.Sprintf("%d committed transactions", len(txs)),
		}
	}
	return nil
}

// matchFields reports whether actual contains every expected field.
// Extra fields in actual are ignored.
func matchFields(actual, expected map[string]any) bool {
	for key, want := range expected {
		got, ok := actual[key]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

// valuesEqual compares a JSON-decoded value with a YAML-decoded one.
// Both are normalized through encoding/json so numbers compare as float64.
func valuesEqual(actual, expected any) bool {
	return reflect.DeepEqual(normalize(actual), normalize(expected))
}

func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

// EvaluateAssertions evaluates all assertions against the result and the
// ledger. Returns one message per failed assertion.
func EvaluateAssertions(ctx context.Context, result *Result, assertions []Assertion, l *ledger.Ledger) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState, AssertHistoryCount, AssertTxCount:
			if l == nil {
				err = fmt.Errorf("assertion[%d]: %s requires a ledger", i, assertion.Type)
				break
			}
			switch assertion.Type {
			case AssertFinalState:
				err = assertFinalState(ctx, l, assertion)
			case AssertHistoryCount:
				err = assertHistoryCount(ctx, l, assertion)
			default:
				err = assertTxCount(ctx, l, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
