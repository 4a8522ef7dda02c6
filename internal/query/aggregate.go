// Package query drains ledger cursors (range scans, predicate queries and
// history walks) into uniform, fully materialized result lists.
//
// A value that fails to parse never aborts aggregation: it is emitted as a
// Raw payload carrying the original string, logged and counted. Only a
// failure of the cursor itself is an error.
package query

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/roach88/custody/internal/failure"
	"github.com/roach88/custody/internal/ledger"
	"github.com/roach88/custody/internal/metrics"
)

// Mode selects the result shape.
type Mode string

const (
	// ModePlain yields {Key, Record} results.
	ModePlain Mode = "plain"

	// ModeHistory yields {TxId, Timestamp, Value} results.
	ModeHistory Mode = "history"
)

// Cursor is a lazy, forward-only, single-pass source.
// ledger.Iterator satisfies it.
type Cursor[T any] interface {
	Next() bool
	Value() T
	Err() error
	Close() error
}

// Payload is a parsed value or, when parsing failed, the raw string.
type Payload struct {
	value any
	raw   string
	isRaw bool
}

// Parsed wraps a successfully parsed value.
func Parsed(v any) Payload {
	return Payload{value: v}
}

// Raw wraps an unparseable value's string form.
func Raw(s string) Payload {
	return Payload{raw: s, isRaw: true}
}

// IsRaw reports whether parsing failed.
func (p Payload) IsRaw() bool { return p.isRaw }

// Value returns the parsed value, or the raw string for a Raw payload.
func (p Payload) Value() any {
	if p.isRaw {
		return p.raw
	}
	return p.value
}

// MarshalJSON writes the parsed value as-is and a Raw payload as a JSON string.
func (p Payload) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Value())
}

// Result is one plain-mode entry.
type Result struct {
	Key    string  `json:"Key"`
	Record Payload `json:"Record"`
}

// HistoryResult is one history-mode entry.
type HistoryResult struct {
	TxID      string           `json:"TxId"`
	Timestamp ledger.Timestamp `json:"Timestamp"`
	Value     Payload          `json:"Value"`
}

// Item is a Result or a HistoryResult.
type Item interface {
	item()
}

func (Result) item()        {}
func (HistoryResult) item() {}

// Entry is a mode-agnostic cursor item. Plain sources set Key; history
// sources set TxID and Timestamp.
type Entry struct {
	Key       string
	TxID      string
	Timestamp ledger.Timestamp
	Value     []byte
}

// Aggregator drains cursors.
type Aggregator struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewAggregator creates an Aggregator. Both arguments may be nil.
func NewAggregator(logger *slog.Logger, m *metrics.Metrics) *Aggregator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Aggregator{logger: logger, metrics: m}
}

// Collect drains a key-value cursor in plain mode.
func (a *Aggregator) Collect(src Cursor[ledger.KV]) ([]Result, error) {
	items, err := a.Aggregate(kvEntries{src}, ModePlain)
	if err != nil {
		return nil, err
	}
	out := make([]Result, len(items))
	for i, it := range items {
		out[i] = it.(Result)
	}
	return out, nil
}

// CollectHistory drains a history cursor in history mode.
func (a *Aggregator) CollectHistory(src Cursor[ledger.Modification]) ([]HistoryResult, error) {
	items, err := a.Aggregate(modificationEntries{src}, ModeHistory)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryResult, len(items))
	for i, it := range items {
		out[i] = it.(HistoryResult)
	}
	return out, nil
}

// Aggregate drains src in the given mode. The cursor is closed on every
// path. Entries with empty values are skipped.
func (a *Aggregator) Aggregate(src Cursor[Entry], mode Mode) (out []Item, err error) {
	defer func() {
		if cerr := src.Close(); cerr != nil && err == nil {
			err = failure.Wrap(failure.KindQuery, "", cerr, "close %s cursor", mode)
			out = nil
		}
	}()

	var build func(Entry, Payload) (string, Item)
	switch mode {
	case ModePlain:
		build = func(e Entry, p Payload) (string, Item) {
			return e.Key, Result{Key: e.Key, Record: p}
		}
	case ModeHistory:
		build = func(e Entry, p Payload) (string, Item) {
			return e.TxID, HistoryResult{TxID: e.TxID, Timestamp: e.Timestamp, Value: p}
		}
	default:
		return nil, failure.New(failure.KindQuery, "", "unknown aggregation mode %q", mode)
	}

	out = []Item{}
	for src.Next() {
		e := src.Value()
		if len(e.Value) == 0 {
			continue
		}

		p, ok := parse(e.Value)
		id, item := build(e, p)
		if !ok {
			a.logger.Warn("malformed entry emitted raw", "mode", string(mode), "id", id)
		}
		a.metrics.IncrementEntry(string(mode), !ok)
		out = append(out, item)
	}
	if err := src.Err(); err != nil {
		return nil, failure.Wrap(failure.KindQuery, "", err, "%s cursor", mode)
	}
	return out, nil
}

// kvEntries presents a range or query cursor as entries.
type kvEntries struct {
	Cursor[ledger.KV]
}

func (c kvEntries) Value() Entry {
	kv := c.Cursor.Value()
	return Entry{Key: kv.Key, Value: kv.Value}
}

// modificationEntries presents a history cursor as entries.
type modificationEntries struct {
	Cursor[ledger.Modification]
}

func (c modificationEntries) Value() Entry {
	m := c.Cursor.Value()
	return Entry{TxID: m.TxID, Timestamp: m.Timestamp, Value: m.Value}
}

// parse decodes a single JSON document. Numbers keep their exact text.
func parse(value []byte) (Payload, bool) {
	dec := json.NewDecoder(bytes.NewReader(value))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return Raw(string(value)), false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Raw(string(value)), false
	}
	return Parsed(v), true
}
