// Package metrics provides observability for the policy evaluation engine
package metrics

import (
	"net/http"
	"time"
)

// Metrics provides observability for the policy evaluation engine
type Metrics interface {
	// RecordEvaluation records a completed evaluation by decision
	RecordEvaluation(decision string, duration time.Duration)
	RecordCacheHit()
	RecordCacheMiss()
	RecordEvaluationError(errorType string)
	RecordPoliciesEvaluated(count int)
	IncActiveEvaluations()
	DecActiveEvaluations()

	// HTTPHandler for Prometheus scraping
	HTTPHandler() http.Handler
}

// NoOpMetrics provides a no-op implementation for testing/disabled monitoring
type NoOpMetrics struct{}

// NewNoOpMetrics creates a new no-op metrics instance
func NewNoOpMetrics() *NoOpMetrics {
	return &NoOpMetrics{}
}

func (n *NoOpMetrics) RecordEvaluation(decision string, duration time.Duration) {}
func (n *NoOpMetrics) RecordCacheHit()                                          {}
func (n *NoOpMetrics) RecordCacheMiss()                                         {}
func (n *NoOpMetrics) RecordEvaluationError(errorType string)                   {}
func (n *NoOpMetrics) RecordPoliciesEvaluated(count int)                        {}
func (n *NoOpMetrics) IncActiveEvaluations()                                    {}
func (n *NoOpMetrics) DecActiveEvaluations()                                    {}

// HTTPHandler returns a no-op handler
func (n *NoOpMetrics) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("# NoOp metrics - monitoring disabled\n"))
	})
}
