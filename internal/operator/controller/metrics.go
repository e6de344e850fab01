package controller

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	// Inventory metrics
	freeInterfaces = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "l2net",
			Subsystem: "inventory",
			Name:      "free_interfaces",
			Help:      "Number of unbound interfaces per node",
		},
		[]string{"node"},
	)

	releasedInterfacesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "l2net",
			Subsystem: "inventory",
			Name:      "released_interfaces_total",
			Help:      "Total number of interfaces returned to the free pool by cause",
		},
		[]string{"cause"},
	)

	attachmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "l2net",
			Subsystem: "inventory",
			Name:      "attachments_total",
			Help:      "Total number of pod attachments by network",
		},
		[]string{"network"},
	)

	// SDN controller API metrics
	sdnAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "l2net",
			Subsystem: "sdn",
			Name:      "api_calls_total",
			Help:      "Total number of SDN controller API calls by operation and result",
		},
		[]string{"operation", "result"},
	)

	sdnAPILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "l2net",
			Subsystem: "sdn",
			Name:      "api_latency_seconds",
			Help:      "Latency of SDN controller API calls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~10s
		},
		[]string{"operation"},
	)
)

func init() {
	// Register metrics with controller-runtime's registry
	metrics.Registry.MustRegister(
		freeInterfaces,
		releasedInterfacesTotal,
		attachmentsTotal,
		sdnAPICallsTotal,
		sdnAPILatency,
	)
}

// recordSDNAPICallMetric records an SDN controller API call.
func recordSDNAPICallMetric(operation, result string, latency float64) {
	sdnAPICallsTotal.WithLabelValues(operation, result).Inc()
	sdnAPILatency.WithLabelValues(operation).Observe(latency)
}

// Metrics helper methods that check enableMetrics before recording.

func (e *Engine) recordFreeInterfaces(ctx context.Context, node string) {
	if !e.enableMetrics || node == "" {
		return
	}
	n, err := e.store.CountFreeInterfaces(ctx, node)
	if err != nil {
		return
	}
	freeInterfaces.WithLabelValues(node).Set(float64(n))
}

func (e *Engine) forgetNode(node string) {
	if e.enableMetrics {
		freeInterfaces.DeleteLabelValues(node)
	}
}

func (e *Engine) recordReleased(cause string, n int) {
	if e.enableMetrics && n > 0 {
		releasedInterfacesTotal.WithLabelValues(cause).Add(float64(n))
	}
}

func (e *Engine) recordAttachment(network string) {
	if e.enableMetrics {
		attachmentsTotal.WithLabelValues(network).Inc()
	}
}

// instrumentedGateway records latency and result of every gateway call.
type instrumentedGateway struct {
	Gateway
	enabled bool
}

func (g *instrumentedGateway) observe(operation string, start time.Time, err error) {
	if !g.enabled {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	recordSDNAPICallMetric(operation, result, time.Since(start).Seconds())
}

func (g *instrumentedGateway) FindDeviceByAddress(ctx context.Context, addr string) (id string, found bool, err error) {
	start := time.Now()
	defer func() { g.observe("list_devices", start, err) }()
	return g.Gateway.FindDeviceByAddress(ctx, addr)
}

func (g *instrumentedGateway) NetworkExists(ctx context.Context, name string) (exists bool, err error) {
	start := time.Now()
	defer func() { g.observe("get_network", start, err) }()
	return g.Gateway.NetworkExists(ctx, name)
}

func (g *instrumentedGateway) CreateNetwork(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() { g.observe("create_network", start, err) }()
	return g.Gateway.CreateNetwork(ctx, name)
}

func (g *instrumentedGateway) DeleteNetwork(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() { g.observe("delete_network", start, err) }()
	return g.Gateway.DeleteNetwork(ctx, name)
}

func (g *instrumentedGateway) AttachPort(ctx context.Context, network, deviceID string, port int) (err error) {
	start := time.Now()
	defer func() { g.observe("attach_port", start, err) }()
	return g.Gateway.AttachPort(ctx, network, deviceID, port)
}
