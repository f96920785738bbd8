package remote

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/sill-dev/sill/pkg/custom"
	"github.com/sill-dev/sill/pkg/protocol"
)

// Endpoint accepts engine connections over WebSocket and runs a dispatcher
// for each. At most one engine is attached at a time; further connections
// are refused with a busy handshake status. Node and fragment handles are
// scoped to a connection, so every new engine session gets a fresh
// dispatcher over the shared kind registry.
type Endpoint struct {
	cfg      config
	logger   *slog.Logger
	registry *custom.Registry
	upgrader websocket.Upgrader
	metrics  *endpointMetrics

	mu         sync.Mutex
	current    *session
	middleware []custom.Middleware
}

// NewEndpoint creates an endpoint serving the given kind registry.
func NewEndpoint(reg *custom.Registry, opts ...Option) *Endpoint {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	checkOrigin := cfg.checkOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}

	return &Endpoint{
		cfg:      cfg,
		logger:   cfg.logger.With("component", "remote"),
		registry: reg,
		metrics:  newEndpointMetrics(cfg.registry),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
	}
}

// Use appends dispatch middleware applied to every engine session. Must be
// called before the first engine connects.
func (ep *Endpoint) Use(mw ...custom.Middleware) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.middleware = append(ep.middleware, mw...)
}

// Path returns the route the endpoint expects to be mounted at.
func (ep *Endpoint) Path() string {
	return ep.cfg.path
}

// Mount registers the endpoint on a chi router at its configured path.
func (ep *Endpoint) Mount(r chi.Router) {
	r.Get(ep.cfg.path, ep.ServeHTTP)
}

// Connected reports whether an engine is currently attached.
func (ep *Endpoint) Connected() bool {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	return ep.current != nil
}

// Stats returns the attached session's dispatcher counters. ok is false
// when no engine is attached.
func (ep *Endpoint) Stats() (stats custom.Stats, ok bool) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	if ep.current == nil {
		return custom.Stats{}, false
	}
	return ep.current.disp.Stats(), true
}

// Close says bye to the attached engine, if any.
func (ep *Endpoint) Close(reason string) {
	ep.mu.Lock()
	s := ep.current
	ep.mu.Unlock()
	if s != nil {
		s.close(reason)
	}
}

// ServeHTTP upgrades the request and runs the engine session to
// completion. The handler goroutine becomes the dispatch loop.
func (ep *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := ep.upgrader.Upgrade(w, r, nil)
	if err != nil {
		ep.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	if ep.cfg.limits.MaxFrame > 0 {
		conn.SetReadLimit(int64(ep.cfg.limits.MaxFrame) + protocol.FrameHeaderSize)
	}

	hello, ok := ep.handshake(conn)
	if !ok {
		conn.Close()
		return
	}

	sess, ok := ep.attach(conn, hello)
	if !ok {
		ep.refuse(conn, protocol.HandshakeBusy)
		conn.Close()
		return
	}
	defer ep.detach(sess)

	welcome := protocol.NewWelcome(ep.cfg.limits)
	if err := sess.writeFrame(protocol.FrameWelcome, protocol.EncodeWelcome(welcome), false); err != nil {
		sess.shutdown("welcome write failed")
		return
	}

	ep.metrics.connect()
	defer ep.metrics.disconnect()
	ep.logger.Info("engine attached", "engine", hello.Engine, "version", hello.Version)

	sess.run()
}

// handshake reads the engine's hello and validates the protocol version.
// On failure the verdict is sent as a welcome frame before returning.
func (ep *Endpoint) handshake(conn *websocket.Conn) (*protocol.Hello, bool) {
	conn.SetReadDeadline(time.Now().Add(ep.cfg.handshakeTimeout))

	_, msg, err := conn.ReadMessage()
	if err != nil {
		ep.logger.Error("handshake read failed", "error", err)
		return nil, false
	}

	frame, err := protocol.DecodeFrame(msg)
	if err != nil || frame.Type != protocol.FrameHello {
		ep.refuse(conn, protocol.HandshakeInvalidFormat)
		return nil, false
	}

	hello, err := protocol.DecodeHello(frame.Payload)
	if err != nil {
		ep.refuse(conn, protocol.HandshakeInvalidFormat)
		return nil, false
	}

	if err := hello.Check(); err != nil {
		ep.logger.Error("handshake version mismatch", "engine", hello.Version, "bridge", protocol.CurrentVersion)
		ep.refuse(conn, protocol.HandshakeVersionMismatch)
		return nil, false
	}
	return hello, true
}

// refuse sends an error welcome. The caller closes the connection.
func (ep *Endpoint) refuse(conn *websocket.Conn, status protocol.HandshakeStatus) {
	welcome := protocol.NewWelcomeError(status)
	frame := protocol.NewFrame(protocol.FrameWelcome, protocol.EncodeWelcome(welcome))
	conn.SetWriteDeadline(time.Now().Add(ep.cfg.writeTimeout))
	conn.WriteMessage(websocket.BinaryMessage, frame.Encode())
}

// attach claims the single engine slot and builds the session plus its
// dispatcher. ok is false when another engine holds the slot.
func (ep *Endpoint) attach(conn *websocket.Conn, hello *protocol.Hello) (*session, bool) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	if ep.current != nil {
		ep.logger.Warn("refusing engine, session busy", "engine", hello.Engine)
		return nil, false
	}

	logger := ep.logger.With("engine", hello.Engine)
	sess := newSession(conn, &ep.cfg, logger, ep.metrics)

	opts := append([]custom.Option{custom.WithLogger(logger)}, ep.cfg.dispatcherOpts...)
	disp := custom.NewDispatcher(&remoteHost{sess: sess}, ep.registry, opts...)
	disp.Use(ep.failureMiddleware())
	disp.Use(ep.middleware...)
	sess.disp = disp

	ep.current = sess
	return sess, true
}

func (ep *Endpoint) detach(s *session) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	if ep.current == s {
		ep.current = nil
	}
}

// failureMiddleware counts contained callback failures. Failures surface
// to middleware as the handler's return error.
func (ep *Endpoint) failureMiddleware() custom.Middleware {
	return func(next custom.Handler) custom.Handler {
		return func(n custom.Notification) error {
			err := next(n)
			if err != nil {
				ep.metrics.failure()
			}
			return err
		}
	}
}
