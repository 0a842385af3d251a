// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StepTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_step_transitions_total",
			Help: "Wizard step transitions by direction",
		},
		[]string{"from_step", "to_step", "direction"},
	)

	StepValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_step_validation_failures_total",
			Help: "Advance attempts blocked by local validation",
		},
		[]string{"step"},
	)

	BackendCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_backend_calls_total",
			Help: "Backend operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	BackendCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "onboarding_backend_call_duration_seconds",
			Help:    "Duration of backend operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DraftCacheOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_draft_cache_operations_total",
			Help: "Draft cache operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	ProgressPercentage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "onboarding_progress_percentage",
			Help: "Last computed onboarding completion percentage",
		},
	)

	AdvancesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "onboarding_advances_in_flight",
			Help: "Advance calls currently waiting on the backend",
		},
	)
)

// Outcome labels a finished operation.
func Outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
