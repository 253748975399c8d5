package scriptbridge

import "github.com/prometheus/client_golang/prometheus"

var (
	executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scriptbridge_executions_total",
			Help: "Total asynchronous script executions by outcome.",
		},
		[]string{"status"},
	)

	executionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scriptbridge_execution_duration_seconds",
			Help:    "Asynchronous script execution duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	executionsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scriptbridge_executions_in_flight",
			Help: "Asynchronous executions currently running.",
		},
	)

	callbackInvocations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scriptbridge_callback_invocations_total",
			Help: "Host callback invocations served on the host loop.",
		},
	)

	callbackFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scriptbridge_callback_failures_total",
			Help: "Host callback invocations that errored or panicked.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		executionsTotal,
		executionDuration,
		executionsInFlight,
		callbackInvocations,
		callbackFailures,
	)
}
