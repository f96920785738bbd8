package remote

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sill-dev/sill/pkg/custom"
	"github.com/sill-dev/sill/pkg/protocol"
)

// Defaults for endpoint configuration.
const (
	DefaultPath             = "/bridge"
	DefaultCallTimeout      = 10 * time.Second
	DefaultPingInterval     = 25 * time.Second
	DefaultReadTimeout      = 60 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
	DefaultHandshakeTimeout = 5 * time.Second

	// DefaultQueueSize bounds lifecycle frames waiting for the dispatch
	// loop. Overflow closes the connection rather than stalling the
	// reader, which must stay free to resolve op results.
	DefaultQueueSize = 1024
)

type config struct {
	logger           *slog.Logger
	limits           protocol.Limits
	path             string
	checkOrigin      func(*http.Request) bool
	callTimeout      time.Duration
	pingInterval     time.Duration
	readTimeout      time.Duration
	writeTimeout     time.Duration
	handshakeTimeout time.Duration
	queueSize        int
	registry         prometheus.Registerer
	dispatcherOpts   []custom.Option
}

func defaultConfig() config {
	return config{
		logger:           slog.Default(),
		limits:           protocol.DefaultLimits(),
		path:             DefaultPath,
		callTimeout:      DefaultCallTimeout,
		pingInterval:     DefaultPingInterval,
		readTimeout:      DefaultReadTimeout,
		writeTimeout:     DefaultWriteTimeout,
		handshakeTimeout: DefaultHandshakeTimeout,
		queueSize:        DefaultQueueSize,
	}
}

// Option configures an Endpoint.
type Option func(*config)

// WithLogger sets the endpoint logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLimits sets the wire limits announced to the engine and enforced on
// inbound frames.
func WithLimits(l protocol.Limits) Option {
	return func(c *config) {
		c.limits = l
	}
}

// WithPath sets the route the endpoint mounts at.
func WithPath(path string) Option {
	return func(c *config) {
		if path != "" {
			c.path = path
		}
	}
}

// WithCheckOrigin sets the WebSocket origin check. The default accepts any
// origin; production deployments should restrict it.
func WithCheckOrigin(fn func(*http.Request) bool) Option {
	return func(c *config) {
		c.checkOrigin = fn
	}
}

// WithCallTimeout bounds how long a host operation waits for the engine's
// result frame.
func WithCallTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.callTimeout = d
		}
	}
}

// WithPingInterval sets the keepalive ping cadence. Zero disables pings.
func WithPingInterval(d time.Duration) Option {
	return func(c *config) {
		c.pingInterval = d
	}
}

// WithReadTimeout sets the per-read deadline on the engine socket.
func WithReadTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.readTimeout = d
		}
	}
}

// WithWriteTimeout sets the per-write deadline on the engine socket.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}

// WithQueueSize sets the notification queue depth between the socket reader
// and the dispatch loop.
func WithQueueSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithMetrics registers endpoint metrics with the given registerer. Metrics
// are disabled when this option is absent.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *config) {
		c.registry = reg
	}
}

// WithDispatcherOptions forwards options to the dispatcher created for each
// engine connection.
func WithDispatcherOptions(opts ...custom.Option) Option {
	return func(c *config) {
		c.dispatcherOpts = append(c.dispatcherOpts, opts...)
	}
}
