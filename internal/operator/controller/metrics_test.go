package controller

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSDNAPICallMetric(t *testing.T) {
	sdnAPICallsTotal.Reset()
	sdnAPILatency.Reset()

	recordSDNAPICallMetric("create_network", "success", 0.05)
	recordSDNAPICallMetric("create_network", "error", 0.5)
	recordSDNAPICallMetric("create_network", "success", 0.07)

	counter, err := sdnAPICallsTotal.GetMetricWithLabelValues("create_network", "success")
	require.NoError(t, err)
	assert.Equal(t, float64(2), testutil.ToFloat64(counter))
	assert.Equal(t, 1, testutil.CollectAndCount(sdnAPILatency))
}

func TestInstrumentedGateway(t *testing.T) {
	sdnAPICallsTotal.Reset()

	gw := &instrumentedGateway{
		Gateway: &MockGateway{
			AttachPortFunc: func(context.Context, string, string, int) error { return errors.New("boom") },
		},
		enabled: true,
	}
	ctx := context.Background()

	require.NoError(t, gw.CreateNetwork(ctx, "tenanta"))
	require.Error(t, gw.AttachPort(ctx, "tenanta", "of:1", 1))
	_, found, err := gw.FindDeviceByAddress(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, found)

	assert.Equal(t, float64(1), testutil.ToFloat64(sdnAPICallsTotal.WithLabelValues("create_network", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(sdnAPICallsTotal.WithLabelValues("attach_port", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(sdnAPICallsTotal.WithLabelValues("list_devices", "success")))
}

func TestInstrumentedGatewayDisabled(t *testing.T) {
	sdnAPICallsTotal.Reset()

	gw := &instrumentedGateway{Gateway: &MockGateway{}, enabled: false}
	require.NoError(t, gw.DeleteNetwork(context.Background(), "tenanta"))

	assert.Equal(t, 0, testutil.CollectAndCount(sdnAPICallsTotal))
}

func TestInventoryMetrics(t *testing.T) {
	freeInterfaces.Reset()
	releasedInterfacesTotal.Reset()

	st := newMemStore()
	_, err := st.RegisterSwitch(context.Background(), "metrics-node", 4)
	require.NoError(t, err)
	e := NewEngine(st, &MockGateway{}, nil)

	e.recordFreeInterfaces(context.Background(), "metrics-node")
	assert.Equal(t, float64(4), testutil.ToFloat64(freeInterfaces.WithLabelValues("metrics-node")))

	e.recordReleased("pod-deleted", 2)
	e.recordReleased("pod-deleted", 0)
	assert.Equal(t, float64(2), testutil.ToFloat64(releasedInterfacesTotal.WithLabelValues("pod-deleted")))

	e.forgetNode("metrics-node")
	assert.Equal(t, 0, testutil.CollectAndCount(freeInterfaces))
}
