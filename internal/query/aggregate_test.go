package query

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/custody/internal/failure"
	"github.com/roach88/custody/internal/ledger"
	"github.com/roach88/custody/internal/metrics"
)

// sliceCursor serves items from memory. If failAt >= 0 the cursor fails
// when asked for that item.
type sliceCursor[T any] struct {
	items    []T
	pos      int
	failAt   int
	err      error
	closeErr error
	closed   int
	nexts    int
}

func newSliceCursor[T any](items ...T) *sliceCursor[T] {
	return &sliceCursor[T]{items: items, pos: -1, failAt: -1}
}

func (c *sliceCursor[T]) Next() bool {
	c.nexts++
	if c.err != nil {
		return false
	}
	c.pos++
	if c.pos == c.failAt {
		c.err = errors.New("cursor broke")
		return false
	}
	return c.pos < len(c.items)
}

func (c *sliceCursor[T]) Value() T     { return c.items[c.pos] }
func (c *sliceCursor[T]) Err() error   { return c.err }
func (c *sliceCursor[T]) Close() error { c.closed++; return c.closeErr }

func kv(key, value string) ledger.KV {
	return ledger.KV{Key: key, Value: []byte(value)}
}

func mod(txID string, secs int64, value string) ledger.Modification {
	return ledger.Modification{TxID: txID, Timestamp: ledger.Timestamp{Seconds: secs}, Value: []byte(value)}
}

func TestCollect_PlainShape(t *testing.T) {
	a := NewAggregator(nil, nil)
	src := newSliceCursor(
		kv("P1", `{"id":"P1","owner":"M1"}`),
		kv("P2", `{"id":"P2","units":12345678901234567890}`),
	)

	got, err := a.Collect(src)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, src.closed)

	out, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t,
		`[{"Key":"P1","Record":{"id":"P1","owner":"M1"}},{"Key":"P2","Record":{"id":"P2","units":12345678901234567890}}]`,
		string(out))
	assert.Contains(t, string(out), "12345678901234567890", "numbers keep their exact text")
}

func TestCollect_MalformedEntryEmittedRaw(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	a := NewAggregator(nil, m)

	src := newSliceCursor(
		kv("A", `{"ok":1}`),
		kv("B", `{not json`),
		kv("C", `"just a string"`),
		kv("D", `{"ok":2} trailing`),
	)

	got, err := a.Collect(src)
	require.NoError(t, err)
	require.Len(t, got, 4, "N well-formed plus the malformed ones")

	assert.False(t, got[0].Record.IsRaw())
	assert.True(t, got[1].Record.IsRaw())
	assert.Equal(t, `{not json`, got[1].Record.Value())
	assert.False(t, got[2].Record.IsRaw())
	assert.Equal(t, "just a string", got[2].Record.Value())
	assert.True(t, got[3].Record.IsRaw())

	out, err := json.Marshal(got[1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"Key":"B","Record":"{not json"}`, string(out))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.MalformedEntries.WithLabelValues("plain")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.AggregatedEntries.WithLabelValues("plain")))
}

func TestCollect_SkipsEmptyValues(t *testing.T) {
	a := NewAggregator(nil, nil)
	src := newSliceCursor(kv("A", `1`), kv("B", ``), kv("C", `2`))

	got, err := a.Collect(src)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Key)
	assert.Equal(t, "C", got[1].Key)
}

func TestCollect_EmptySourceIsEmptyList(t *testing.T) {
	a := NewAggregator(nil, nil)

	got, err := a.Collect(newSliceCursor[ledger.KV]())
	require.NoError(t, err)
	assert.NotNil(t, got)

	out, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(out))
}

func TestCollect_SourceFailureIsQueryError(t *testing.T) {
	a := NewAggregator(nil, nil)
	src := newSliceCursor(kv("A", `1`), kv("B", `2`), kv("C", `3`))
	src.failAt = 1

	got, err := a.Collect(src)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, failure.IsKind(err, failure.KindQuery))
	assert.Equal(t, 1, src.closed, "cursor released on failure")
	assert.Equal(t, 2, src.nexts, "no prefetch past the failure")
}

func TestCollect_CloseFailureIsQueryError(t *testing.T) {
	a := NewAggregator(nil, nil)
	src := newSliceCursor(kv("A", `1`))
	src.closeErr = errors.New("close failed")

	_, err := a.Collect(src)
	assert.True(t, failure.IsKind(err, failure.KindQuery))
}

func TestCollectHistory_Shape(t *testing.T) {
	a := NewAggregator(nil, nil)
	src := newSliceCursor(
		mod("tx-1", 100, `{"owner":"M1"}`),
		mod("tx-2", 200, `broken`),
	)

	got, err := a.CollectHistory(src)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, src.closed)

	out, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"TxId":"tx-1","Timestamp":{"seconds":100,"nanos":0},"Value":{"owner":"M1"}},
		{"TxId":"tx-2","Timestamp":{"seconds":200,"nanos":0},"Value":"broken"}
	]`, string(out))
}

func TestAggregate_Modes(t *testing.T) {
	a := NewAggregator(nil, nil)

	plain, err := a.Aggregate(newSliceCursor(Entry{Key: "K", Value: []byte(`1`)}), ModePlain)
	require.NoError(t, err)
	require.Len(t, plain, 1)
	assert.IsType(t, Result{}, plain[0])

	hist, err := a.Aggregate(newSliceCursor(Entry{TxID: "tx", Value: []byte(`1`)}), ModeHistory)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "tx", hist[0].(HistoryResult).TxID)
}

func TestAggregate_UnknownModeClosesCursor(t *testing.T) {
	a := NewAggregator(nil, nil)
	src := newSliceCursor(Entry{Key: "K", Value: []byte(`1`)})

	_, err := a.Aggregate(src, Mode("sideways"))
	assert.True(t, failure.IsKind(err, failure.KindQuery))
	assert.Equal(t, 1, src.closed)
}
