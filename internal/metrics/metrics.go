package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the Prometheus collectors for the query API. A fresh
// registry per instance keeps handler tests independent.
type Metrics struct {
	Registry *prometheus.Registry

	queryVerdicts *prometheus.CounterVec
	queryDuration prometheus.Histogram
}

// New constructs and registers the query API collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,
		queryVerdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "searchvolume_query_keywords_total",
			Help: "Per-keyword query outcomes by timing and verdict.",
		}, []string{"timing", "verdict"}),
		queryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "searchvolume_query_duration_seconds",
			Help:    "Latency of /query requests.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveVerdict counts one per-keyword outcome.
func (m *Metrics) ObserveVerdict(timing string, granted bool) {
	verdict := "granted"
	if !granted {
		verdict = "denied"
	}
	m.queryVerdicts.WithLabelValues(timing, verdict).Inc()
}

// ObserveQueryDuration records one request's latency in seconds.
func (m *Metrics) ObserveQueryDuration(seconds float64) {
	m.queryDuration.Observe(seconds)
}
