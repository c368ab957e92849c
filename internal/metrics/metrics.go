// Package metrics exposes extraction counters and timings to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Document outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeEmpty    = "empty"
	OutcomeTimedOut = "timed_out"
	OutcomeFailed   = "failed"
)

// Metrics holds the extraction collectors. A nil *Metrics records nothing.
type Metrics struct {
	Pages        *prometheus.CounterVec
	PageFailures *prometheus.CounterVec
	Documents    *prometheus.CounterVec
	Transactions prometheus.Counter
	Duration     prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stmtx",
			Name:      "pages_total",
			Help:      "Pages classified, by kind.",
		}, []string{"kind"}),
		PageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stmtx",
			Name:      "page_failures_total",
			Help:      "Pages that degraded or were skipped, by stage.",
		}, []string{"stage"}),
		Documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stmtx",
			Name:      "documents_total",
			Help:      "Documents processed, by outcome.",
		}, []string{"outcome"}),
		Transactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stmtx",
			Name:      "transactions_total",
			Help:      "Transactions returned after deduplication.",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "stmtx",
			Name:      "extraction_duration_seconds",
			Help:      "Wall time of one document extraction.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Pages, m.PageFailures, m.Documents, m.Transactions, m.Duration)
	}
	return m
}

// PageClassified counts one page of the given kind.
func (m *Metrics) PageClassified(kind string) {
	if m == nil {
		return
	}
	m.Pages.WithLabelValues(kind).Inc()
}

// PageFailed counts a page that failed at stage.
func (m *Metrics) PageFailed(stage string) {
	if m == nil {
		return
	}
	m.PageFailures.WithLabelValues(stage).Inc()
}

// DocumentDone records a finished document.
func (m *Metrics) DocumentDone(outcome string, transactions int, took time.Duration) {
	if m == nil {
		return
	}
	m.Documents.WithLabelValues(outcome).Inc()
	m.Transactions.Add(float64(transactions))
	m.Duration.Observe(took.Seconds())
}
