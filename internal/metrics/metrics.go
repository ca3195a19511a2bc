// Package metrics exposes Prometheus collectors for the inventory service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeCommitted = "committed"
	OutcomeAborted   = "aborted"
)

type Metrics struct {
	TransactionsTotal   *prometheus.CounterVec
	TransactionDuration prometheus.Histogram
	PartsCreatedTotal   prometheus.Counter
}

// New registers the collectors with reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TransactionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assembly",
			Subsystem: "inventory",
			Name:      "transactions_total",
			Help:      "Stock transactions by outcome.",
		}, []string{"outcome"}),
		TransactionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "assembly",
			Subsystem: "inventory",
			Name:      "transaction_duration_seconds",
			Help:      "Wall time of stock transactions, including aborts.",
			Buckets:   prometheus.DefBuckets,
		}),
		PartsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "assembly",
			Subsystem: "parts",
			Name:      "created_total",
			Help:      "Parts created since process start.",
		}),
	}

	reg.MustRegister(m.TransactionsTotal, m.TransactionDuration, m.PartsCreatedTotal)
	return m
}
