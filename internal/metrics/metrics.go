// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "balansim"

// Outcome label values.
const (
	OutcomeOK         = "ok"
	OutcomeRejected   = "rejected"
	OutcomeSaveFail   = "save_failed"
	OutcomeNoop       = "noop"
	OutcomeFallback   = "fallback"
	OutcomeCached     = "cached"
	OutcomeSuperseded = "superseded"
	OutcomeDropped    = "dropped"
)

var LedgerMutations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "mutations_total",
	Help:      "Ledger mutations by operation and outcome.",
}, []string{"operation", "outcome"})

var PersistenceFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "persistence_failures_total",
	Help:      "Saves or loads of the ledger document that failed.",
})

var Balance = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "balance",
	Help:      "Current balance in major currency units.",
})

var Transactions = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "transactions",
	Help:      "Number of transactions in the ledger.",
})

var AdviceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "advice",
	Name:      "requests_total",
	Help:      "Advice requests by outcome.",
}, []string{"outcome"})

var AdviceLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "advice",
	Name:      "latency_seconds",
	Help:      "Latency of calls to the advice service.",
	Buckets:   prometheus.DefBuckets,
})

var EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "events",
	Name:      "published_total",
	Help:      "Ledger events published to AMQP by type and outcome.",
}, []string{"type", "outcome"})

var RowsExported = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "export",
	Name:      "rows_total",
	Help:      "Spreadsheet rows appended or cleared by the export worker.",
}, []string{"action"})

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "HTTP requests by route pattern, method and status code.",
}, []string{"route", "method", "status"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by route pattern.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
}, []string{"route"})

var RateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "rate_limited_total",
	Help:      "Mutating requests refused by the per-client rate limiter.",
})

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
