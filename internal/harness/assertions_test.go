package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTrace() []TraceEvent {
	r := NewResult()
	r.AddTrace(TraceEvent{Function: "InitLedger", Outcome: OutcomeOK})
	r.AddTrace(TraceEvent{Function: "CreateProduct", Args: []string{"P1"}, Outcome: OutcomeOK})
	r.AddTrace(TraceEvent{Function: "CreateProduct", Args: []string{"P1"}, Outcome: "ALREADY_EXISTS"})
	r.AddTrace(TraceEvent{Function: "TransferProduct", Args: []string{"P1", "D1"}, Outcome: OutcomeOK})
	return r.Trace
}

func TestAddTrace_NumbersSteps(t *testing.T) {
	trace := testTrace()
	for i, e := range trace {
		assert.Equal(t, i+1, e.Step)
		assert.NotNil(t, e.Args)
	}
}

func TestAssertTraceOrder(t *testing.T) {
	trace := testTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{Functions: []string{"InitLedger", "TransferProduct"}}))
	assert.NoError(t, assertTraceOrder(trace, Assertion{Functions: []string{"CreateProduct", "TransferProduct"}}))

	err := assertTraceOrder(trace, Assertion{Functions: []string{"TransferProduct", "CreateProduct"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TransferProduct (pos 4) should be before CreateProduct (pos 2)")

	err = assertTraceOrder(trace, Assertion{Functions: []string{"InitLedger", "ListProduct"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing function: ListProduct")
}

func TestAssertTraceCount(t *testing.T) {
	trace := testTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Function: "CreateProduct", Count: 2}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Function: "ListProduct", Count: 0}))

	err := assertTraceCount(trace, Assertion{Function: "CreateProduct", Count: 1})
	require.Error(t, err)

	var aerr *AssertionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, AssertTraceCount, aerr.Type)
	assert.Equal(t, "2 invocations", aerr.Actual)
	assert.Contains(t, err.Error(), "[3] CreateProduct [P1] -> ALREADY_EXISTS")
}

func TestMatchFields(t *testing.T) {
	actual := map[string]any{
		"owner":          "D1",
		"listingDetails": map[string]any{"units": float64(1), "dealer": "D1"},
		"extra":          true,
	}

	assert.True(t, matchFields(actual, map[string]any{"owner": "D1"}))
	assert.True(t, matchFields(actual, map[string]any{
		"listingDetails": map[string]any{"dealer": "D1", "units": 1},
	}))
	assert.False(t, matchFields(actual, map[string]any{"owner": "M1"}))
	assert.False(t, matchFields(actual, map[string]any{"missing": "x"}))
	assert.False(t, matchFields(actual, map[string]any{"listingDetails": map[string]any{"dealer": "D1"}}))
}

func TestEvaluateAssertions_LedgerRequired(t *testing.T) {
	msgs := EvaluateAssertions(context.Background(), NewResult(), []Assertion{
		{Type: AssertTxCount, Count: 0},
		{Type: "bogus"},
	}, nil)

	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0], "tx_count requires a ledger")
	assert.Contains(t, msgs[1], `unknown assertion type "bogus"`)
}
