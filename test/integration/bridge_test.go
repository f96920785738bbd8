package integration_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sill-dev/sill/pkg/custom"
	"github.com/sill-dev/sill/pkg/dom"
	"github.com/sill-dev/sill/pkg/middleware"
	"github.com/sill-dev/sill/pkg/protocol"
	"github.com/sill-dev/sill/pkg/remote"
)

// The full serving stack as sill serve assembles it: kind registry, bridge
// endpoint with metrics and tracing middleware, chi router with health and
// metrics routes. The engine side is driven over a real websocket.

type noteState struct {
	mirrored int
}

func newBridgeRouter(t *testing.T) (chi.Router, *remote.Endpoint, *prometheus.Registry) {
	t.Helper()

	reg := custom.NewRegistry()
	echo := dom.MustName("echo")
	err := custom.Define(reg, dom.MustName("x-note"), custom.Descriptor[noteState]{
		New: func(el custom.Element[noteState]) (*noteState, error) {
			if _, err := el.AttachTemplate(dom.ShadowOpen); err != nil {
				return nil, err
			}
			return &noteState{}, nil
		},
		AttributeChanged: func(el custom.Element[noteState], change dom.AttributeChange) {
			_ = el.SetAttribute(echo, change.New.Or(""))
			el.With(func(s *noteState) { s.mirrored++ })
		},
		ObservedAttributes: []dom.Name{dom.MustName("value")},
		Template:           custom.TemplateMarkup(`<div class="note"></div>`),
	})
	if err != nil {
		t.Fatalf("Define() error: %v", err)
	}

	promReg := prometheus.NewRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ep := remote.NewEndpoint(reg,
		remote.WithLogger(logger),
		remote.WithMetrics(promReg),
	)
	ep.Use(middleware.Metrics(middleware.WithRegistry(promReg)), middleware.OTel())
	t.Cleanup(func() { ep.Close("test over") })

	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.Recoverer)
	ep.Mount(r)
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		state := map[string]any{"status": "ok", "engine": ep.Connected()}
		if stats, ok := ep.Stats(); ok {
			state["constructed"] = stats.Constructed
			state["connected"] = stats.Connected
		}
		json.NewEncoder(w).Encode(state)
	})
	r.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))

	return r, ep, promReg
}

type health struct {
	Status      string `json:"status"`
	Engine      bool   `json:"engine"`
	Constructed uint64 `json:"constructed"`
	Connected   uint64 `json:"connected"`
}

func getHealth(t *testing.T, baseURL string) health {
	t.Helper()

	resp, err := http.Get(baseURL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /healthz status = %d, want 200", resp.StatusCode)
	}
	var h health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		t.Fatalf("healthz decode failed: %v", err)
	}
	return h
}

// wireEngine drives the engine side of the bridge connection.
type wireEngine struct {
	t    *testing.T
	conn *websocket.Conn
}

func dialWireEngine(t *testing.T, baseURL, path string) *wireEngine {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	hello := &protocol.Hello{Version: protocol.CurrentVersion, Engine: "integration/1"}
	frame := protocol.NewFrame(protocol.FrameHello, protocol.EncodeHello(hello))
	if err := conn.WriteMessage(websocket.BinaryMessage, frame.Encode()); err != nil {
		t.Fatalf("hello write failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("welcome read failed: %v", err)
	}
	reply, err := protocol.DecodeFrame(msg)
	if err != nil {
		t.Fatalf("welcome decode failed: %v", err)
	}
	welcome, err := protocol.DecodeWelcome(reply.Payload)
	if err != nil {
		t.Fatalf("welcome payload decode failed: %v", err)
	}
	if welcome.Status != protocol.HandshakeOK {
		t.Fatalf("handshake status = %v, want OK", welcome.Status)
	}

	return &wireEngine{t: t, conn: conn}
}

func (e *wireEngine) writeFrame(ft protocol.FrameType, payload []byte) {
	e.t.Helper()
	frame := protocol.NewFrame(ft, payload)
	if err := e.conn.WriteMessage(websocket.BinaryMessage, frame.Encode()); err != nil {
		e.t.Fatalf("frame write failed: %v", err)
	}
}

func (e *wireEngine) sendLifecycle(lc *protocol.Lifecycle) {
	e.writeFrame(protocol.FrameLifecycle, protocol.EncodeLifecycle(lc))
}

func (e *wireEngine) sendAttr(ac *protocol.AttributeChange) {
	e.writeFrame(protocol.FrameAttribute, protocol.EncodeAttributeChange(ac))
}

// pumpUntil answers every incoming host operation with a success result
// until one of the wanted type has been answered, and returns it.
func (e *wireEngine) pumpUntil(want protocol.OpType) *protocol.Op {
	e.t.Helper()

	var nextHandle uint64 = 100
	for {
		e.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		_, msg, err := e.conn.ReadMessage()
		if err != nil {
			e.t.Fatalf("read while waiting for %v failed: %v", want, err)
		}
		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			e.t.Fatalf("frame decode failed: %v", err)
		}
		if frame.Type != protocol.FrameOp {
			continue
		}
		op, err := protocol.DecodeOp(frame.Payload)
		if err != nil {
			e.t.Fatalf("op decode failed: %v", err)
		}

		var payload []byte
		switch op.Type {
		case protocol.OpCreateTemplate, protocol.OpCloneFragment, protocol.OpAttachShadow, protocol.OpQuery:
			nextHandle++
			payload = protocol.HandlePayload(nextHandle)
		case protocol.OpGetAttr:
			payload = protocol.AttrPayload(protocol.NoAttr())
		case protocol.OpRect:
			payload = protocol.RectPayload(0, 0, 0, 0)
		}
		e.writeFrame(protocol.FrameResult, protocol.EncodeResult(protocol.NewResult(op.ID, payload)))

		if op.Type == want {
			return op
		}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestBridgeServingStack(t *testing.T) {
	r, ep, _ := newBridgeRouter(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	if h := getHealth(t, srv.URL); h.Engine {
		t.Error("healthz reports an engine before one attached")
	}

	engine := dialWireEngine(t, srv.URL, ep.Path())

	engine.sendLifecycle(&protocol.Lifecycle{Event: protocol.LifecycleConstructed, Node: 1, Kind: "x-note"})
	engine.sendLifecycle(&protocol.Lifecycle{Event: protocol.LifecycleConnected, Node: 1})

	// Constructing x-note attaches a shadow root and instantiates the
	// template, so the append arrives after shadow, create, and clone.
	engine.pumpUntil(protocol.OpAppendFragment)

	engine.sendAttr(&protocol.AttributeChange{
		Node: 1,
		Name: "value",
		Old:  protocol.NoAttr(),
		New:  protocol.SomeAttr("42"),
	})
	op := engine.pumpUntil(protocol.OpSetAttr)
	if op.Name != "echo" || op.Value != "42" {
		t.Errorf("SetAttr = %s=%q, want echo=\"42\"", op.Name, op.Value)
	}

	h := getHealth(t, srv.URL)
	if !h.Engine {
		t.Error("healthz reports no engine while one is attached")
	}
	if h.Constructed != 1 {
		t.Errorf("healthz constructed = %d, want 1", h.Constructed)
	}
	if h.Connected != 1 {
		t.Errorf("healthz connected = %d, want 1", h.Connected)
	}

	engine.conn.Close()
	waitFor(t, "engine detach", func() bool {
		return !getHealthQuiet(srv.URL).Engine
	})
}

// getHealthQuiet is getHealth without failing the test, for polling.
func getHealthQuiet(baseURL string) health {
	resp, err := http.Get(baseURL + "/healthz")
	if err != nil {
		return health{}
	}
	defer resp.Body.Close()
	var h health
	json.NewDecoder(resp.Body).Decode(&h)
	return h
}

func TestDispatchMetricsExposed(t *testing.T) {
	r, ep, _ := newBridgeRouter(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	engine := dialWireEngine(t, srv.URL, ep.Path())
	engine.sendLifecycle(&protocol.Lifecycle{Event: protocol.LifecycleConstructed, Node: 7, Kind: "x-note"})
	engine.pumpUntil(protocol.OpAppendFragment)

	waitFor(t, "dispatch metrics", func() bool {
		resp, err := http.Get(srv.URL + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return false
		}
		return strings.Contains(string(body), "sill_dispatch_notifications_total")
	})
}

func TestRecovererGuardsBridgeRoutes(t *testing.T) {
	r, _, _ := newBridgeRouter(t)
	r.Get("/boom", func(w http.ResponseWriter, req *http.Request) {
		panic("route failure")
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/boom")
	if err != nil {
		t.Fatalf("GET /boom failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("GET /boom status = %d, want 500", resp.StatusCode)
	}

	if h := getHealth(t, srv.URL); h.Status != "ok" {
		t.Errorf("healthz status = %q after panic route, want \"ok\"", h.Status)
	}
}
