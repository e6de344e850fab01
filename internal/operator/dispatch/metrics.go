package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	handlerTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "l2net",
			Subsystem: "dispatch",
			Name:      "handler_total",
			Help:      "Total number of handler invocations by route and outcome",
		},
		[]string{"route", "outcome"},
	)

	handlerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "l2net",
			Subsystem: "dispatch",
			Name:      "handler_duration_seconds",
			Help:      "Duration of handler invocations in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"route"},
	)
)

func init() {
	// Register metrics with controller-runtime's registry
	metrics.Registry.MustRegister(
		handlerTotal,
		handlerDuration,
	)
}

func (d *Dispatcher) recordHandler(route, outcome string, seconds float64) {
	if !d.enableMetrics {
		return
	}
	handlerTotal.WithLabelValues(route, outcome).Inc()
	handlerDuration.WithLabelValues(route).Observe(seconds)
}
