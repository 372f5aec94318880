package engine

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcodehost/gcodehost/session"
)

func newTestEngine(t *testing.T) (*CommandEngine, net.Conn, func()) {
	t.Helper()
	host, device := net.Pipe()
	reg := prometheus.NewRegistry()
	e := NewWithMetrics(nil, session.DefaultConfig(), reg)

	// swap the connect dialer isn't possible without a seam, so tests
	// exercise Dispatch via a pre-established session instead of
	// "connect" commands; poke the Session directly through Socket().
	sess := e.sess
	_, err := sess.Connect(host, session.DefaultConfig())
	require.NoError(t, err)

	return e, device, func() {
		sess.Disconnect()
		device.Close()
	}
}

func ackMetricsDevice(device net.Conn, stop <-chan struct{}) {
	go func() {
		buf := make([]byte, 256)
		for {
			select {
			case <-stop:
				return
			default:
			}
			n, err := device.Read(buf)
			if err != nil {
				return
			}
			_ = n
			device.Write([]byte("ok\n"))
		}
	}()
}

func TestDispatch_SendEmitsInfoAndCountsMetric(t *testing.T) {
	t.Parallel()
	e, device, cleanup := newTestEngine(t)
	defer cleanup()

	stop := make(chan struct{})
	defer close(stop)
	ackMetricsDevice(device, stop)

	sub := e.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	e.Dispatch(ctx, "G28")

	resp, ok := sub.Next()
	require.True(t, ok)
	assert.Equal(t, RespInfo, resp.Kind)

	metric := &dto.Metric{}
	require.NoError(t, e.metrics.commandsTotal.WithLabelValues("gcodes").Write(metric))
	assert.Equal(t, float64(1), metric.GetCounter().GetValue())
}

func TestDispatch_UnrecognizedEmitsError(t *testing.T) {
	t.Parallel()
	e, _, cleanup := newTestEngine(t)
	defer cleanup()

	sub := e.Subscribe()
	defer sub.Close()

	e.Dispatch(context.Background(), "???")
	resp, ok := sub.Next()
	require.True(t, ok)
	assert.Equal(t, RespError, resp.Kind)
}

func TestDispatch_MacroDefineAndList(t *testing.T) {
	t.Parallel()
	e, _, cleanup := newTestEngine(t)
	defer cleanup()

	sub := e.Subscribe()
	defer sub.Close()

	e.Dispatch(context.Background(), "macro home G28;G1 Z5")
	resp, ok := sub.Next()
	require.True(t, ok)
	assert.Equal(t, RespInfo, resp.Kind)

	e.Dispatch(context.Background(), "macros")
	resp, ok = sub.Next()
	require.True(t, ok)
	assert.Contains(t, resp.Text, "HOME")
}

func TestDispatch_ClearAndQuitPublishDistinctKinds(t *testing.T) {
	t.Parallel()
	e, _, cleanup := newTestEngine(t)
	defer cleanup()

	sub := e.Subscribe()
	defer sub.Close()

	e.Dispatch(context.Background(), "clear")
	resp, ok := sub.Next()
	require.True(t, ok)
	assert.Equal(t, RespClear, resp.Kind)

	e.Dispatch(context.Background(), "quit")
	resp, ok = sub.Next()
	require.True(t, ok)
	assert.Equal(t, RespQuit, resp.Kind)
}
