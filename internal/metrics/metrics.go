// Package metrics registers the Prometheus collectors for the settlement
// engine and the HTTP surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors. One instance is created at startup and
// shared by the ledger handlers and the HTTP middleware.
type Metrics struct {
	TransfersTotal   *prometheus.CounterVec
	DepositsTotal    prometheus.Counter
	TransferDuration prometheus.Histogram
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
}

// New registers the collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TransfersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gkash_transfers_total",
			Help: "Settlement attempts by outcome.",
		}, []string{"outcome"}),
		DepositsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "gkash_deposits_total",
			Help: "Committed deposits.",
		}),
		TransferDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gkash_transfer_duration_seconds",
			Help:    "Latency of the atomic transfer operation.",
			Buckets: prometheus.DefBuckets,
		}),
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gkash_http_requests_total",
			Help: "HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gkash_http_request_duration_seconds",
			Help:    "HTTP request latency by path.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"}),
	}
}

// Transfer outcome labels.
const (
	OutcomeCommitted    = "committed"
	OutcomeInsufficient = "insufficient_balance"
	OutcomeRejected     = "rejected"
)
