package middleware

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	sillerrors "github.com/sill-dev/sill/internal/errors"
	"github.com/sill-dev/sill/pkg/custom"
)

// MetricsConfig configures the Prometheus dispatch middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "sill").
	Namespace string

	// Subsystem is the metrics subsystem (default: "dispatch").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for notification duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus dispatch middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "sill",
		Subsystem: "dispatch",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// dispatchMetrics holds the Prometheus instruments for the dispatch
// pipeline.
type dispatchMetrics struct {
	notificationsTotal *prometheus.CounterVec
	duration           *prometheus.HistogramVec
	failuresTotal      *prometheus.CounterVec
	reentrantTotal     prometheus.Counter
}

// globalMetrics backs the default-registry path. A process registers a
// metric name at most once, so repeated Metrics() calls against the default
// registerer share one instance; the first call's config wins.
var (
	globalMetrics   *dispatchMetrics
	globalMetricsMu sync.Mutex
)

func initDispatchMetrics(config MetricsConfig) *dispatchMetrics {
	factory := promauto.With(config.Registry)

	return &dispatchMetrics{
		notificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notifications_total",
			Help:        "Lifecycle notifications dispatched by stage, kind, and outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"stage", "kind", "status"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "duration_seconds",
			Help:        "Notification dispatch duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"stage"}),

		failuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "failures_total",
			Help:        "Contained callback failures by stage and failure class",
			ConstLabels: config.ConstLabels,
		}, []string{"stage", "class"}),

		reentrantTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reentrant_total",
			Help:        "Notifications dispatched from inside another callback",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Metrics creates dispatch middleware that collects Prometheus metrics.
//
// Metrics collected:
//   - sill_dispatch_notifications_total: Counter by stage, kind, and outcome
//   - sill_dispatch_duration_seconds: Histogram of dispatch duration by stage
//   - sill_dispatch_failures_total: Counter of contained failures by class
//   - sill_dispatch_reentrant_total: Counter of reentrant dispatches
//
// Example:
//
//	disp := custom.NewDispatcher(host, reg)
//	disp.Use(middleware.Metrics(
//	    middleware.WithNamespace("myapp"),
//	))
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
func Metrics(opts ...MetricsOption) custom.Middleware {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	var m *dispatchMetrics
	if config.Registry == prometheus.DefaultRegisterer {
		globalMetricsMu.Lock()
		if globalMetrics == nil {
			globalMetrics = initDispatchMetrics(config)
		}
		m = globalMetrics
		globalMetricsMu.Unlock()
	} else {
		m = initDispatchMetrics(config)
	}

	return func(next custom.Handler) custom.Handler {
		return func(n custom.Notification) error {
			start := time.Now()

			err := next(n)

			stage := n.Stage.String()
			m.duration.WithLabelValues(stage).Observe(time.Since(start).Seconds())

			status := "ok"
			if err != nil {
				status = "contained"
				m.failuresTotal.WithLabelValues(stage, classifyFailure(err)).Inc()
			}
			m.notificationsTotal.WithLabelValues(stage, n.Kind.String(), status).Inc()

			if n.Depth > 1 {
				m.reentrantTotal.Inc()
			}
			return err
		}
	}
}

// classifyFailure returns a bounded label for a contained failure. Coded
// errors classify by code; anything else collapses to a single class to
// keep label cardinality down.
func classifyFailure(err error) string {
	var se *sillerrors.SillError
	if errors.As(err, &se) && se.Code != "" {
		return se.Code
	}
	if errors.Is(err, custom.ErrAliasedBorrow) {
		return "aliased_borrow"
	}
	return "internal"
}
