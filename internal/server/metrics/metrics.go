// Package metrics defines the Prometheus collectors exported by chessd.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// EngineBuckets covers calculations from sub-second replies up to the 60s deadline
var EngineBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 45, 60, 90}

// Calculation outcomes
const (
	OutcomeSuccess  = "success"
	OutcomeTimeout  = "timeout"
	OutcomeNotReady = "not_ready"
	OutcomeDelivery = "delivery_failed"
	OutcomeCanceled = "canceled"
	OutcomeError    = "error"
)

var (
	// CalculationsTotal counts engine calculations by outcome.
	CalculationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chessd_engine_calculations_total",
			Help: "Engine calculations",
		},
		[]string{"outcome"},
	)

	// CalculationDuration records time from lock acquisition to result.
	CalculationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chessd_engine_calculation_duration_seconds",
			Help:    "Engine calculation duration",
			Buckets: EngineBuckets,
		},
		[]string{"outcome"},
	)

	// LockWait records how long a calculation waited for the engine.
	LockWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chessd_engine_lock_wait_seconds",
			Help:    "Time spent waiting for exclusive engine access",
			Buckets: EngineBuckets,
		},
	)

	// ReadinessAttemptsTotal counts isready probes by result.
	ReadinessAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chessd_engine_readiness_attempts_total",
			Help: "Engine readiness probes",
		},
		[]string{"result"},
	)

	// OutputLinesDropped counts engine output lines discarded because the reader fell behind.
	OutputLinesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chessd_engine_output_lines_dropped_total",
			Help: "Engine output lines dropped",
		},
	)

	// RequestsTotal counts HTTP requests by method and status code.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chessd_http_requests_total",
			Help: "HTTP requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chessd_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: EngineBuckets,
		},
		[]string{"method"},
	)

	// StoreRetriesTotal counts retried game store operations.
	StoreRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chessd_store_retries_total",
			Help: "Game store retries",
		},
		[]string{"operation"},
	)
)

// Register adds every chessd collector to reg
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		CalculationsTotal,
		CalculationDuration,
		LockWait,
		ReadinessAttemptsTotal,
		OutputLinesDropped,
		RequestsTotal,
		RequestDuration,
		StoreRetriesTotal,
	)
}
