package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics is valid
// and turns every recording method into a no-op, so components do not need
// a registry in tests.
type Metrics struct {
	cyclesTotal     *prometheus.CounterVec
	cycleDuration   prometheus.Histogram
	candidatesTotal *prometheus.CounterVec
	activitiesTotal *prometheus.CounterVec
	queriesTotal    *prometheus.CounterVec
	queryDuration   *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surveillance",
			Name:      "cycles_total",
			Help:      "Detection cycles by outcome",
		}, []string{"status"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "surveillance",
			Name:      "cycle_duration_seconds",
			Help:      "Detection cycle latency",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		candidatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surveillance",
			Name:      "candidates_total",
			Help:      "Raw candidates per detector before deduplication",
		}, []string{"pattern"}),
		activitiesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surveillance",
			Name:      "activities_total",
			Help:      "Suspicious activities emitted per pattern type",
		}, []string{"pattern"}),
		queriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surveillance",
			Subsystem: "graph",
			Name:      "queries_total",
			Help:      "Graph traversal queries by pattern spec and status",
		}, []string{"spec", "status"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "surveillance",
			Subsystem: "graph",
			Name:      "query_duration_seconds",
			Help:      "Graph traversal query latency per pattern spec",
			Buckets:   prometheus.DefBuckets,
		}, []string{"spec"}),
	}

	reg.MustRegister(
		m.cyclesTotal,
		m.cycleDuration,
		m.candidatesTotal,
		m.activitiesTotal,
		m.queriesTotal,
		m.queryDuration,
	)

	return m
}

// ObserveCycle records one detection cycle outcome and its duration.
func (m *Metrics) ObserveCycle(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.cyclesTotal.WithLabelValues(status).Inc()
	m.cycleDuration.Observe(d.Seconds())
}

// AddCandidates records raw candidates surfaced by a detector.
func (m *Metrics) AddCandidates(pattern string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.candidatesTotal.WithLabelValues(pattern).Add(float64(n))
}

// AddActivities records deduplicated activities emitted by a cycle.
func (m *Metrics) AddActivities(pattern string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.activitiesTotal.WithLabelValues(pattern).Add(float64(n))
}

// ObserveQuery records one graph query and its duration.
func (m *Metrics) ObserveQuery(spec, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.queriesTotal.WithLabelValues(spec, status).Inc()
	m.queryDuration.WithLabelValues(spec).Observe(d.Seconds())
}
