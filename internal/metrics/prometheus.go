package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics implements Metrics using Prometheus
type PrometheusMetrics struct {
	evaluationsTotal  *prometheus.CounterVec
	cacheHitsTotal    prometheus.Counter
	cacheMissesTotal  prometheus.Counter
	errorsTotal       *prometheus.CounterVec
	policiesEvaluated prometheus.Histogram
	activeEvaluations prometheus.Gauge
	evalDuration      prometheus.Histogram

	registry *prometheus.Registry
}

// NewPrometheusMetrics creates a new Prometheus metrics instance
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	evaluationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Total number of policy evaluations by decision",
		},
		[]string{"decision"},
	)

	cacheHitsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of result cache hits",
		},
	)

	cacheMissesTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of result cache misses",
		},
	)

	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of evaluation errors by type",
		},
		[]string{"type"},
	)

	policiesEvaluated := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "policies_evaluated",
			Help:      "Number of policies considered per evaluation",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
	)

	activeEvaluations := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_evaluations",
			Help:      "Number of evaluations in flight",
		},
	)

	evalDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_milliseconds",
			Help:      "Policy evaluation latency in milliseconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	registry.MustRegister(
		evaluationsTotal,
		cacheHitsTotal,
		cacheMissesTotal,
		errorsTotal,
		policiesEvaluated,
		activeEvaluations,
		evalDuration,
	)

	return &PrometheusMetrics{
		evaluationsTotal:  evaluationsTotal,
		cacheHitsTotal:    cacheHitsTotal,
		cacheMissesTotal:  cacheMissesTotal,
		errorsTotal:       errorsTotal,
		policiesEvaluated: policiesEvaluated,
		activeEvaluations: activeEvaluations,
		evalDuration:      evalDuration,
		registry:          registry,
	}
}

// RecordEvaluation records a completed evaluation
func (m *PrometheusMetrics) RecordEvaluation(decision string, duration time.Duration) {
	m.evaluationsTotal.WithLabelValues(decision).Inc()
	m.evalDuration.Observe(float64(duration.Microseconds()) / 1000.0)
}

// RecordCacheHit records a result cache hit
func (m *PrometheusMetrics) RecordCacheHit() {
	m.cacheHitsTotal.Inc()
}

// RecordCacheMiss records a result cache miss
func (m *PrometheusMetrics) RecordCacheMiss() {
	m.cacheMissesTotal.Inc()
}

// RecordEvaluationError records an evaluation error by type
func (m *PrometheusMetrics) RecordEvaluationError(errorType string) {
	m.errorsTotal.WithLabelValues(errorType).Inc()
}

// RecordPoliciesEvaluated records how many policies a request touched
func (m *PrometheusMetrics) RecordPoliciesEvaluated(count int) {
	m.policiesEvaluated.Observe(float64(count))
}

// IncActiveEvaluations increments the in-flight gauge
func (m *PrometheusMetrics) IncActiveEvaluations() {
	m.activeEvaluations.Inc()
}

// DecActiveEvaluations decrements the in-flight gauge
func (m *PrometheusMetrics) DecActiveEvaluations() {
	m.activeEvaluations.Dec()
}

// HTTPHandler returns the Prometheus scrape handler
func (m *PrometheusMetrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
