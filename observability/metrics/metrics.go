package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "swt"

// EngineMetrics tracks executed wrapping operations and the supply picture of
// every mint pair.
type EngineMetrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	events     *prometheus.CounterVec
	supply     *prometheus.GaugeVec
	healthy    *prometheus.GaugeVec
}

// HTTPMetrics tracks the RPC surface.
type HTTPMetrics struct {
	requests    *prometheus.CounterVec
	errors      *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	throttles   *prometheus.CounterVec
	subscribers prometheus.Gauge
}

var (
	engineOnce     sync.Once
	engineRegistry *EngineMetrics

	httpOnce     sync.Once
	httpRegistry *HTTPMetrics
)

// Engine returns the lazily-initialised engine metrics registry.
func Engine() *EngineMetrics {
	engineOnce.Do(func() {
		engineRegistry = &EngineMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "operations_total",
				Help:      "Executed operations segmented by operation and result code.",
			}, []string{"operation", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for executed operations including commit.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "events_total",
				Help:      "Events published after commit segmented by type.",
			}, []string{"type"}),
			supply: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "supply",
				Name:      "tokens",
				Help:      "Supply components per wrapped mint.",
			}, []string{"mint", "component"}),
			healthy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "supply",
				Name:      "healthy",
				Help:      "1 when the supply identity and the redistribution bound hold for the mint.",
			}, []string{"mint"}),
		}
		prometheus.MustRegister(
			engineRegistry.operations,
			engineRegistry.latency,
			engineRegistry.events,
			engineRegistry.supply,
			engineRegistry.healthy,
		)
	})
	return engineRegistry
}

// ObserveOperation records one executed operation. code is empty on success.
func (m *EngineMetrics) ObserveOperation(operation, code string, duration time.Duration) {
	if m == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	if code == "" {
		code = "ok"
	}
	m.operations.WithLabelValues(operation, code).Inc()
	m.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordEvent counts a published event.
func (m *EngineMetrics) RecordEvent(eventType string) {
	if m == nil || eventType == "" {
		return
	}
	m.events.WithLabelValues(eventType).Inc()
}

// Supply is the subset of a supply report exported as gauges.
type Supply struct {
	WrappedSupply     uint64
	CustodyOriginal   uint64
	OrderEscrowed     uint64
	PermanentlyFrozen uint64
	Redistributed     uint64
	Healthy           bool
}

// SetSupply publishes the supply components of mint.
func (m *EngineMetrics) SetSupply(mint string, s Supply) {
	if m == nil {
		return
	}
	m.supply.WithLabelValues(mint, "wrapped").Set(float64(s.WrappedSupply))
	m.supply.WithLabelValues(mint, "custody_original").Set(float64(s.CustodyOriginal))
	m.supply.WithLabelValues(mint, "order_escrowed").Set(float64(s.OrderEscrowed))
	m.supply.WithLabelValues(mint, "permanently_frozen").Set(float64(s.PermanentlyFrozen))
	m.supply.WithLabelValues(mint, "redistributed").Set(float64(s.Redistributed))
	healthy := 0.0
	if s.Healthy {
		healthy = 1
	}
	m.healthy.WithLabelValues(mint).Set(healthy)
}

// HTTP returns the lazily-initialised RPC metrics registry.
func HTTP() *HTTPMetrics {
	httpOnce.Do(func() {
		httpRegistry = &HTTPMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "RPC requests segmented by route and outcome.",
			}, []string{"route", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "RPC errors segmented by route and status code.",
			}, []string{"route", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rpc",
				Name:      "throttles_total",
				Help:      "Requests rejected by throttling policies.",
			}, []string{"reason"}),
			subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "rpc",
				Name:      "event_subscribers",
				Help:      "Open websocket event subscriptions.",
			}),
		}
		prometheus.MustRegister(
			httpRegistry.requests,
			httpRegistry.errors,
			httpRegistry.latency,
			httpRegistry.throttles,
			httpRegistry.subscribers,
		)
	})
	return httpRegistry
}

// Observe records the outcome of a request. The status should be the HTTP
// status that was ultimately written.
func (m *HTTPMetrics) Observe(route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
		m.errors.WithLabelValues(route, strconv.Itoa(status)).Inc()
	}
	m.requests.WithLabelValues(route, outcome).Inc()
	m.latency.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter. Reasons should be stable
// strings such as "rate_limit".
func (m *HTTPMetrics) RecordThrottle(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(reason).Inc()
}

// Throttles exposes the throttle counter for inspection.
func (m *HTTPMetrics) Throttles() *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	return m.throttles
}

// SubscriberDelta adjusts the open subscription gauge.
func (m *HTTPMetrics) SubscriberDelta(delta int) {
	if m == nil {
		return
	}
	m.subscribers.Add(float64(delta))
}
