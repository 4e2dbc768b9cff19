package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestEngineMetrics(t *testing.T) {
	m := Engine()
	require.Same(t, m, Engine())

	before := testutil.ToFloat64(m.operations.WithLabelValues("wrap", "ok"))
	m.ObserveOperation("wrap", "", 5*time.Millisecond)
	m.ObserveOperation("thaw", "PrematureThaw", time.Millisecond)
	require.Equal(t, before+1, testutil.ToFloat64(m.operations.WithLabelValues("wrap", "ok")))
	require.GreaterOrEqual(t, testutil.ToFloat64(m.operations.WithLabelValues("thaw", "PrematureThaw")), 1.0)

	m.SetSupply("swt1mint", Supply{WrappedSupply: 900, CustodyOriginal: 1000, PermanentlyFrozen: 100, Redistributed: 100, Healthy: true})
	require.Equal(t, 900.0, testutil.ToFloat64(m.supply.WithLabelValues("swt1mint", "wrapped")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.healthy.WithLabelValues("swt1mint")))
	m.SetSupply("swt1mint", Supply{})
	require.Equal(t, 0.0, testutil.ToFloat64(m.healthy.WithLabelValues("swt1mint")))

	m.RecordEvent("securewrap.wrapped")
	require.GreaterOrEqual(t, testutil.ToFloat64(m.events.WithLabelValues("securewrap.wrapped")), 1.0)
}

func TestHTTPMetrics(t *testing.T) {
	m := HTTP()
	before := testutil.ToFloat64(m.errors.WithLabelValues("/v1/ops/{operation}", "409"))
	m.Observe("/v1/ops/{operation}", 409, time.Millisecond)
	require.Equal(t, before+1, testutil.ToFloat64(m.errors.WithLabelValues("/v1/ops/{operation}", "409")))

	m.RecordThrottle("")
	require.GreaterOrEqual(t, testutil.ToFloat64(m.throttles.WithLabelValues("unspecified")), 1.0)

	start := testutil.ToFloat64(m.subscribers)
	m.SubscriberDelta(1)
	m.SubscriberDelta(-1)
	require.Equal(t, start, testutil.ToFloat64(m.subscribers))
}

func TestNilReceivers(t *testing.T) {
	var e *EngineMetrics
	e.ObserveOperation("wrap", "", time.Second)
	e.SetSupply("m", Supply{})
	e.RecordEvent("x")
	var h *HTTPMetrics
	h.Observe("/", 200, time.Second)
	h.RecordThrottle("rate_limit")
	h.SubscriberDelta(1)
}
