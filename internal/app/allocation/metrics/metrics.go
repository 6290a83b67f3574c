package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the allocation engine.
type Metrics struct {
	// Operation outcomes by operation and outcome
	Outcomes *prometheus.CounterVec

	// Operation latency by operation
	OperationLatency *prometheus.HistogramVec

	// Time spent waiting for a unit lock
	LockWait prometheus.Histogram
}

// New creates the allocation metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clubhub_allocation_outcomes_total",
			Help: "Allocation operation outcomes by operation and outcome",
		}, []string{"operation", "outcome"}),

		OperationLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clubhub_allocation_operation_duration_seconds",
			Help:    "Duration of allocation operations including store round trips",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),

		LockWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "clubhub_allocation_unit_lock_wait_seconds",
			Help:    "Time spent waiting to acquire a per-unit allocation lock",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}
}

// IncrementOutcome records one operation outcome.
func (m *Metrics) IncrementOutcome(operation, outcome string) {
	if m != nil {
		m.Outcomes.WithLabelValues(operation, outcome).Inc()
	}
}

// ObserveOperation records the duration of one operation.
func (m *Metrics) ObserveOperation(operation string, d time.Duration) {
	if m != nil {
		m.OperationLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}

// ObserveLockWait records how long a unit lock took to acquire.
func (m *Metrics) ObserveLockWait(d time.Duration) {
	if m != nil {
		m.LockWait.Observe(d.Seconds())
	}
}
