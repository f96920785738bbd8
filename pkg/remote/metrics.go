package remote

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// endpointMetrics holds the Prometheus instruments for one endpoint. A nil
// receiver disables collection, so call sites never branch on configuration.
type endpointMetrics struct {
	framesTotal       *prometheus.CounterVec
	lifecycleTotal    *prometheus.CounterVec
	opsTotal          *prometheus.CounterVec
	opDuration        *prometheus.HistogramVec
	callbackFailures  prometheus.Counter
	activeConnections prometheus.Gauge
}

func newEndpointMetrics(reg prometheus.Registerer) *endpointMetrics {
	if reg == nil {
		return nil
	}
	factory := promauto.With(reg)

	return &endpointMetrics{
		framesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sill",
			Subsystem: "remote",
			Name:      "frames_total",
			Help:      "Frames received from the engine by frame type",
		}, []string{"type"}),

		lifecycleTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sill",
			Subsystem: "remote",
			Name:      "lifecycle_notifications_total",
			Help:      "Lifecycle notifications delivered by event",
		}, []string{"event"}),

		opsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sill",
			Subsystem: "remote",
			Name:      "host_ops_total",
			Help:      "Host operations sent to the engine by op and outcome",
		}, []string{"op", "status"}),

		opDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sill",
			Subsystem: "remote",
			Name:      "host_op_duration_seconds",
			Help:      "Host operation round-trip time in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),

		callbackFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sill",
			Subsystem: "remote",
			Name:      "callback_failures_total",
			Help:      "Lifecycle callback failures contained by the dispatcher",
		}),

		activeConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "sill",
			Subsystem: "remote",
			Name:      "active_connections",
			Help:      "Engine connections currently attached",
		}),
	}
}

func (m *endpointMetrics) frame(typ string) {
	if m == nil {
		return
	}
	m.framesTotal.WithLabelValues(typ).Inc()
}

func (m *endpointMetrics) lifecycle(event string) {
	if m == nil {
		return
	}
	m.lifecycleTotal.WithLabelValues(event).Inc()
}

func (m *endpointMetrics) op(op, status string, seconds float64) {
	if m == nil {
		return
	}
	m.opsTotal.WithLabelValues(op, status).Inc()
	m.opDuration.WithLabelValues(op).Observe(seconds)
}

func (m *endpointMetrics) failure() {
	if m == nil {
		return
	}
	m.callbackFailures.Inc()
}

func (m *endpointMetrics) connect() {
	if m == nil {
		return
	}
	m.activeConnections.Inc()
}

func (m *endpointMetrics) disconnect() {
	if m == nil {
		return
	}
	m.activeConnections.Dec()
}
