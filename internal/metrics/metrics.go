// Package metrics exposes Prometheus instruments for contract transactions
// and query aggregation.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transaction outcomes.
const (
	OutcomeCommitted = "committed"
	OutcomeEvaluated = "evaluated"
	OutcomeFailed    = "failed"
)

// Metrics holds the custody instruments.
type Metrics struct {
	Transactions      *prometheus.CounterVec
	TransactionTime   *prometheus.HistogramVec
	AggregatedEntries *prometheus.CounterVec
	MalformedEntries  *prometheus.CounterVec
}

// New creates Metrics registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_transactions_total",
			Help: "Contract transactions by function and outcome",
		}, []string{"function", "outcome"}),
		TransactionTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "custody_transaction_duration_seconds",
			Help:    "Duration of contract transactions including commit",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"function"}),
		AggregatedEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_query_entries_total",
			Help: "Entries emitted by query aggregation, by mode",
		}, []string{"mode"}),
		MalformedEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_query_malformed_entries_total",
			Help: "Entries that failed to parse and were emitted raw, by mode",
		}, []string{"mode"}),
	}
}

// ObserveTransaction records one transaction.
// Call with time.Now() at the start of the transaction.
func (m *Metrics) ObserveTransaction(function, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.Transactions.WithLabelValues(function, outcome).Inc()
	m.TransactionTime.WithLabelValues(function).Observe(time.Since(start).Seconds())
}

// IncrementEntry records one aggregated entry.
func (m *Metrics) IncrementEntry(mode string, malformed bool) {
	if m == nil {
		return
	}
	m.AggregatedEntries.WithLabelValues(mode).Inc()
	if malformed {
		m.MalformedEntries.WithLabelValues(mode).Inc()
	}
}

// WriteTextfile writes everything gathered by g to path in the text
// exposition format, for a node-exporter textfile collector.
func WriteTextfile(g prometheus.Gatherer, path string) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
