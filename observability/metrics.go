// Package observability wires the engine's operation counters, error
// counters, and accrual latency into Prometheus, mirroring the lazily
// initialised moduleMetrics registry in the teacher's observability package.
package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PoolMetrics exposes the counters and histograms recorded around every
// state-changing pool operation.
type PoolMetrics struct {
	operations *prometheus.CounterVec
	errors     *prometheus.CounterVec
	accrualMs  *prometheus.HistogramVec
}

var (
	poolMetricsOnce sync.Once
	poolMetrics     *PoolMetrics
)

// Pool returns the process-wide PoolMetrics registry, constructing it on
// first use.
func Pool() *PoolMetrics {
	poolMetricsOnce.Do(func() {
		poolMetrics = &PoolMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lendingpool",
				Subsystem: "engine",
				Name:      "operations_total",
				Help:      "Total pool operations segmented by pool, operation, and outcome.",
			}, []string{"pool", "operation", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lendingpool",
				Subsystem: "engine",
				Name:      "errors_total",
				Help:      "Total pool operation failures segmented by pool, operation, and error kind.",
			}, []string{"pool", "operation", "kind"}),
			accrualMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "lendingpool",
				Subsystem: "engine",
				Name:      "accrual_duration_seconds",
				Help:      "Latency distribution of the accrual pass invoked before each operation.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"pool"}),
		}
		prometheus.MustRegister(poolMetrics.operations, poolMetrics.errors, poolMetrics.accrualMs)
	})
	return poolMetrics
}

// ObserveOperation records the outcome of a completed pool operation.
func (m *PoolMetrics) ObserveOperation(pool, operation, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(pool, operation, outcome).Inc()
}

// ObserveError records a failed pool operation by error kind.
func (m *PoolMetrics) ObserveError(pool, operation, kind string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(pool, operation, kind).Inc()
}

// ObserveAccrual records how long an accrual pass took.
func (m *PoolMetrics) ObserveAccrual(pool string, d time.Duration) {
	if m == nil {
		return
	}
	m.accrualMs.WithLabelValues(pool).Observe(d.Seconds())
}
