// sill-bench drives a bridge endpoint with a synthetic engine and measures
// the attribute-change round trip: engine notification in, dispatched
// callback, host operation back out. It starts an in-process endpoint,
// attaches one engine connection, announces a population of elements, and
// then hammers them from concurrent workers.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"runtime/debug"
	"runtime/metrics"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/sill-dev/sill/pkg/custom"
	"github.com/sill-dev/sill/pkg/dom"
	"github.com/sill-dev/sill/pkg/protocol"
	"github.com/sill-dev/sill/pkg/remote"
)

const (
	gib = int64(1024 * 1024 * 1024)

	benchKind   = "x-bench"
	attrValue   = "value"
	attrEcho    = "echo"
	engineLabel = "sill-bench/1"
)

type profile struct {
	Name          string
	Workers       int
	Elements      int
	Duration      time.Duration
	RPS           float64
	PayloadBytes  int
	MaxProcs      int
	MemLimitBytes int64
}

var profiles = map[string]profile{
	"fast": {
		Name:         "fast",
		Workers:      50,
		Elements:     200,
		Duration:     10 * time.Second,
		RPS:          2,
		PayloadBytes: 24,
	},
	"standard": {
		Name:         "standard",
		Workers:      200,
		Elements:     1000,
		Duration:     30 * time.Second,
		RPS:          5,
		PayloadBytes: 24,
	},
	"stress": {
		Name:          "stress",
		Workers:       500,
		Elements:      2500,
		Duration:      60 * time.Second,
		RPS:           10,
		PayloadBytes:  24,
		MaxProcs:      4,
		MemLimitBytes: 2 * gib,
	},
}

type benchConfig struct {
	Profile       string
	Workers       int
	Elements      int
	Duration      time.Duration
	RPS           float64
	PayloadBytes  int
	MaxProcs      int
	MemLimitBytes int64
	JSONOutput    string
	EventTimeout  time.Duration
}

type benchCounters struct {
	eventsSent     atomic.Uint64
	eventsComplete atomic.Uint64
	eventBytes     atomic.Uint64
	opBytes        atomic.Uint64
	opFrames       atomic.Uint64
}

type benchErrors struct {
	handshakeFailures   atomic.Uint64
	eventWriteFailures  atomic.Uint64
	frameDecodeFailures atomic.Uint64
	opDecodeFailures    atomic.Uint64
	faultFrames         atomic.Uint64
	tokenMissing        atomic.Uint64
	totalErrors         atomic.Uint64
}

type hostOpCounts struct {
	counts [256]atomic.Uint64
}

func (h *hostOpCounts) add(op protocol.OpType) {
	h.counts[uint8(op)].Add(1)
}

func (h *hostOpCounts) snapshot() map[string]uint64 {
	out := make(map[string]uint64)
	for i := range h.counts {
		count := h.counts[i].Load()
		if count == 0 {
			continue
		}
		name := protocol.OpType(uint8(i)).String()
		if name == "Unknown" {
			name = fmt.Sprintf("0x%02x", i)
		}
		out[name] = count
	}
	return out
}

// benchState is the instance state of the x-bench kind. Each observed
// change is mirrored into an unobserved attribute, so every event costs
// the bridge exactly one host operation.
type benchState struct {
	events int
}

func defineBenchKind(reg *custom.Registry) error {
	echo := dom.MustName(attrEcho)
	return custom.Define(reg, dom.MustName(benchKind), custom.Descriptor[benchState]{
		New: func(el custom.Element[benchState]) (*benchState, error) {
			return &benchState{}, nil
		},
		AttributeChanged: func(el custom.Element[benchState], change dom.AttributeChange) {
			_ = el.SetAttribute(echo, change.New.Or(""))
			el.With(func(s *benchState) { s.events++ })
		},
		ObservedAttributes: []dom.Name{dom.MustName(attrValue)},
	})
}

func main() {
	log.SetFlags(0)

	cfg, err := parseConfig()
	if err != nil {
		log.Fatal(err)
	}

	if cfg.MaxProcs > 0 {
		runtime.GOMAXPROCS(cfg.MaxProcs)
	}
	if cfg.MemLimitBytes > 0 {
		debug.SetMemoryLimit(cfg.MemLimitBytes)
	}

	debug.SetGCPercent(100)

	reg := custom.NewRegistry()
	if err := defineBenchKind(reg); err != nil {
		log.Fatalf("define kind: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	ep := remote.NewEndpoint(reg,
		remote.WithLogger(logger),
		remote.WithCheckOrigin(func(r *http.Request) bool { return true }),
		remote.WithQueueSize(2*cfg.Elements+1024),
	)
	defer ep.Close("benchmark complete")

	r := chi.NewRouter()
	ep.Mount(r)

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		log.Fatalf("listen: %v", err)
	}

	httpServer := &http.Server{Handler: r}
	go func() {
		_ = httpServer.Serve(ln)
	}()
	defer func() {
		_ = httpServer.Shutdown(context.Background())
	}()

	wsURL := "ws://" + ln.Addr().String() + ep.Path()

	var counters benchCounters
	var errCounts benchErrors
	var hostOps hostOpCounts

	engine, err := dialEngine(wsURL, &counters, &errCounts, &hostOps)
	if err != nil {
		errCounts.handshakeFailures.Add(1)
		log.Fatalf("engine handshake: %v", err)
	}
	defer engine.close()

	go engine.readLoop()

	if err := engine.populate(cfg.Elements); err != nil {
		log.Fatalf("populate: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	samplesCh := make(chan time.Duration, sampleBuffer(cfg.Workers))
	var samples []time.Duration
	var samplesMu sync.Mutex
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for rtt := range samplesCh {
			samplesMu.Lock()
			samples = append(samples, rtt)
			samplesMu.Unlock()
		}
	}()

	var before runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	beforeMetrics := readRuntimeMetrics()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		workerID := i
		lo := i * cfg.Elements / cfg.Workers
		hi := (i + 1) * cfg.Elements / cfg.Workers
		go func() {
			defer wg.Done()
			if err := runWorker(ctx, engine, workerID, lo+1, hi, cfg, &counters, &errCounts, samplesCh); err != nil {
				errCounts.totalErrors.Add(1)
			}
		}()
	}

	wg.Wait()
	close(samplesCh)
	<-collectorDone

	elapsed := time.Since(start)

	var after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&after)
	afterMetrics := readRuntimeMetrics()

	samplesMu.Lock()
	latencies := append([]time.Duration(nil), samples...)
	samplesMu.Unlock()
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	report := buildReport(cfg, elapsed, latencies, &counters, &errCounts, &hostOps, before, after, beforeMetrics, afterMetrics)

	writeSummary(os.Stderr, report)
	if err := writeJSON(cfg.JSONOutput, report); err != nil {
		log.Fatalf("write json: %v", err)
	}
}

func sampleBuffer(workers int) int {
	if workers < 1 {
		return 1024
	}
	buf := workers * 4
	if buf < 1024 {
		buf = 1024
	}
	return buf
}

func parseConfig() (benchConfig, error) {
	profileFlag := flag.String("profile", "standard", "profile: fast|standard|stress")
	workersFlag := flag.Int("workers", -1, "number of concurrent event workers")
	elementsFlag := flag.Int("elements", -1, "number of live elements in the population")
	durationFlag := flag.String("duration", "", "benchmark duration, e.g. 30s")
	rpsFlag := flag.Float64("rps", -1, "target events/sec per worker")
	payloadFlag := flag.Int("payload-bytes", -1, "bytes of token payload per event")
	maxProcsFlag := flag.Int("max-procs", -1, "GOMAXPROCS cap (0 to leave unchanged)")
	memLimitFlag := flag.String("mem-limit", "", "GOMEMLIMIT (e.g. 2GiB)")
	jsonFlag := flag.String("json", "-", "JSON output path ('-' for stdout)")
	flag.Parse()

	name := strings.ToLower(strings.TrimSpace(*profileFlag))
	if name == "" {
		name = "standard"
	}

	base, ok := profiles[name]
	if !ok {
		return benchConfig{}, fmt.Errorf("unknown profile %q", name)
	}

	cfg := benchConfig{
		Profile:       base.Name,
		Workers:       base.Workers,
		Elements:      base.Elements,
		Duration:      base.Duration,
		RPS:           base.RPS,
		PayloadBytes:  base.PayloadBytes,
		MaxProcs:      base.MaxProcs,
		MemLimitBytes: base.MemLimitBytes,
		JSONOutput:    strings.TrimSpace(*jsonFlag),
	}

	if *workersFlag != -1 {
		cfg.Workers = *workersFlag
	}
	if *elementsFlag != -1 {
		cfg.Elements = *elementsFlag
	}
	if *durationFlag != "" {
		d, err := time.ParseDuration(*durationFlag)
		if err != nil {
			return benchConfig{}, fmt.Errorf("invalid -duration: %w", err)
		}
		cfg.Duration = d
	}
	if *rpsFlag != -1 {
		cfg.RPS = *rpsFlag
	}
	if *payloadFlag != -1 {
		cfg.PayloadBytes = *payloadFlag
	}
	if *maxProcsFlag != -1 {
		cfg.MaxProcs = *maxProcsFlag
	}
	if *memLimitFlag != "" {
		limit, err := parseBytes(*memLimitFlag)
		if err != nil {
			return benchConfig{}, fmt.Errorf("invalid -mem-limit: %w", err)
		}
		cfg.MemLimitBytes = limit
	}
	if cfg.JSONOutput == "" {
		cfg.JSONOutput = "-"
	}

	if cfg.Workers <= 0 {
		return benchConfig{}, errors.New("-workers must be > 0")
	}
	if cfg.Elements <= 0 {
		return benchConfig{}, errors.New("-elements must be > 0")
	}
	if cfg.Workers > cfg.Elements {
		return benchConfig{}, errors.New("-workers must not exceed -elements")
	}
	if cfg.Duration <= 0 {
		return benchConfig{}, errors.New("-duration must be > 0")
	}
	if cfg.RPS <= 0 {
		return benchConfig{}, errors.New("-rps must be > 0")
	}
	if cfg.PayloadBytes <= 0 {
		return benchConfig{}, errors.New("-payload-bytes must be > 0")
	}
	if cfg.MaxProcs < 0 {
		return benchConfig{}, errors.New("-max-procs must be >= 0")
	}
	if cfg.MemLimitBytes < 0 {
		return benchConfig{}, errors.New("-mem-limit must be >= 0")
	}

	cfg.EventTimeout = eventTimeout(cfg.RPS)
	return cfg, nil
}

func eventTimeout(rps float64) time.Duration {
	if rps <= 0 {
		return 0
	}
	period := time.Duration(float64(time.Second) / rps)
	timeout := period * 10
	if timeout < 2*time.Second {
		timeout = 2 * time.Second
	}
	return timeout
}

func parseBytes(input string) (int64, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, errors.New("empty size")
	}

	var i int
	for i < len(s) {
		c := s[i]
		if (c >= '0' && c <= '9') || c == '.' {
			i++
			continue
		}
		break
	}
	if i == 0 {
		return 0, fmt.Errorf("invalid size %q", input)
	}

	numPart := strings.TrimSpace(s[:i])
	suffix := strings.ToLower(strings.TrimSpace(s[i:]))

	value, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, err
	}

	multiplier := float64(1)
	switch suffix {
	case "", "b":
		multiplier = 1
	case "kb":
		multiplier = 1e3
	case "mb":
		multiplier = 1e6
	case "gb":
		multiplier = 1e9
	case "tb":
		multiplier = 1e12
	case "kib":
		multiplier = 1024
	case "mib":
		multiplier = 1024 * 1024
	case "gib":
		multiplier = 1024 * 1024 * 1024
	case "tib":
		multiplier = 1024 * 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unknown size suffix %q", suffix)
	}

	bytes := value * multiplier
	if bytes < 0 {
		return 0, fmt.Errorf("invalid size %q", input)
	}

	return int64(bytes + 0.5), nil
}

// benchEngine is the fake engine side of the single bridge connection. All
// workers share it; writes are serialized, and one reader goroutine answers
// host operations and resolves token waiters.
type benchEngine struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu         sync.Mutex
	pending    map[string]chan struct{}
	nextHandle uint64

	counters  *benchCounters
	errCounts *benchErrors
	hostOps   *hostOpCounts

	closeOnce sync.Once
	done      chan struct{}
}

func dialEngine(wsURL string, counters *benchCounters, errCounts *benchErrors, hostOps *hostOpCounts) (*benchEngine, error) {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	hello := &protocol.Hello{Version: protocol.CurrentVersion, Engine: engineLabel}
	frame := protocol.NewFrame(protocol.FrameHello, protocol.EncodeHello(hello))
	if err := conn.WriteMessage(websocket.BinaryMessage, frame.Encode()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("hello write: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("welcome read: %w", err)
	}
	reply, err := protocol.DecodeFrame(msg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("welcome frame decode: %w", err)
	}
	if reply.Type != protocol.FrameWelcome {
		conn.Close()
		return nil, fmt.Errorf("expected FrameWelcome, got %v", reply.Type)
	}
	welcome, err := protocol.DecodeWelcome(reply.Payload)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("welcome decode: %w", err)
	}
	if welcome.Status != protocol.HandshakeOK {
		conn.Close()
		return nil, fmt.Errorf("handshake refused: %s", welcome.Status)
	}
	conn.SetReadDeadline(time.Time{})

	return &benchEngine{
		conn:      conn,
		pending:   make(map[string]chan struct{}),
		counters:  counters,
		errCounts: errCounts,
		hostOps:   hostOps,
		done:      make(chan struct{}),
	}, nil
}

// populate announces the element population: every node is constructed and
// then connected. The dispatch queue preserves order, so workers may start
// as soon as the frames are on the wire.
func (e *benchEngine) populate(elements int) error {
	for i := 1; i <= elements; i++ {
		node := uint64(i)
		constructed := &protocol.Lifecycle{Event: protocol.LifecycleConstructed, Node: node, Kind: benchKind}
		if _, err := e.writeFrame(protocol.FrameLifecycle, protocol.EncodeLifecycle(constructed)); err != nil {
			return err
		}
		connected := &protocol.Lifecycle{Event: protocol.LifecycleConnected, Node: node}
		if _, err := e.writeFrame(protocol.FrameLifecycle, protocol.EncodeLifecycle(connected)); err != nil {
			return err
		}
	}
	return nil
}

func (e *benchEngine) writeFrame(ft protocol.FrameType, payload []byte) (int, error) {
	data := protocol.NewFrame(ft, payload).Encode()
	e.writeMu.Lock()
	err := e.conn.WriteMessage(websocket.BinaryMessage, data)
	e.writeMu.Unlock()
	return len(data), err
}

// expect registers a waiter for a token before the event frame is written,
// so the echo cannot race the registration.
func (e *benchEngine) expect(token string) chan struct{} {
	ch := make(chan struct{})
	e.mu.Lock()
	e.pending[token] = ch
	e.mu.Unlock()
	return ch
}

func (e *benchEngine) forget(token string) {
	e.mu.Lock()
	delete(e.pending, token)
	e.mu.Unlock()
}

func (e *benchEngine) resolve(token string) {
	e.mu.Lock()
	ch := e.pending[token]
	delete(e.pending, token)
	e.mu.Unlock()
	if ch != nil {
		close(ch)
	}
}

// readLoop answers bridge traffic until the connection closes. Every host
// operation gets an immediate OK result; the dispatch loop blocks on that
// result, so answering promptly is what keeps the bridge moving.
func (e *benchEngine) readLoop() {
	defer close(e.done)

	for {
		_, msg, err := e.conn.ReadMessage()
		if err != nil {
			return
		}
		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			e.errCounts.frameDecodeFailures.Add(1)
			return
		}

		switch frame.Type {
		case protocol.FrameOp:
			e.counters.opFrames.Add(1)
			e.counters.opBytes.Add(uint64(len(msg)))
			op, err := protocol.DecodeOp(frame.Payload)
			if err != nil {
				e.errCounts.opDecodeFailures.Add(1)
				return
			}
			e.hostOps.add(op.Type)
			e.answer(op)
			if op.Type == protocol.OpSetAttr {
				e.resolve(op.Value)
			}

		case protocol.FrameControl:
			c, err := protocol.DecodeControl(frame.Payload)
			if err != nil {
				return
			}
			switch c.Type {
			case protocol.ControlPing:
				_, _ = e.writeFrame(protocol.FrameControl, protocol.EncodeControl(protocol.NewPong(c.Seq)))
			case protocol.ControlBye:
				return
			}

		case protocol.FrameFault:
			e.errCounts.faultFrames.Add(1)
			if f, err := protocol.DecodeFault(frame.Payload); err == nil && f.Fatal {
				return
			}
		}
	}
}

func (e *benchEngine) answer(op *protocol.Op) {
	var payload []byte
	switch op.Type {
	case protocol.OpCreateTemplate, protocol.OpCloneFragment, protocol.OpAttachShadow, protocol.OpQuery:
		e.mu.Lock()
		e.nextHandle++
		payload = protocol.HandlePayload(e.nextHandle)
		e.mu.Unlock()
	case protocol.OpGetAttr:
		payload = protocol.AttrPayload(protocol.NoAttr())
	case protocol.OpRect:
		payload = protocol.RectPayload(0, 0, 0, 0)
	}
	_, _ = e.writeFrame(protocol.FrameResult, protocol.EncodeResult(protocol.NewResult(op.ID, payload)))
}

func (e *benchEngine) close() {
	e.closeOnce.Do(func() {
		_, _ = e.writeFrame(protocol.FrameControl, protocol.EncodeControl(protocol.NewBye("benchmark complete")))
		e.conn.Close()
		<-e.done
	})
}

// runWorker pumps attribute changes through the worker's element range.
// Node IDs lo..hi are exclusive to this worker, so old-value tracking
// needs no locking. Each event waits for its token to come back as a host
// operation before the next one is sent.
func runWorker(
	ctx context.Context,
	engine *benchEngine,
	workerID int,
	lo, hi int,
	cfg benchConfig,
	counters *benchCounters,
	errCounts *benchErrors,
	samples chan<- time.Duration,
) error {
	span := hi - lo + 1
	last := make(map[uint64]string, span)
	period := time.Duration(float64(time.Second) / cfg.RPS)
	var seq uint64

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		seq++
		token := makeToken(workerID, seq, cfg.PayloadBytes)
		node := uint64(lo + int(seq)%span)

		old := protocol.NoAttr()
		if prev, ok := last[node]; ok {
			old = protocol.SomeAttr(prev)
		}
		change := &protocol.AttributeChange{
			Node: node,
			Name: attrValue,
			Old:  old,
			New:  protocol.SomeAttr(token),
		}

		start := time.Now()

		waiter := engine.expect(token)
		n, err := engine.writeFrame(protocol.FrameAttribute, protocol.EncodeAttributeChange(change))
		if err != nil {
			engine.forget(token)
			errCounts.eventWriteFailures.Add(1)
			return fmt.Errorf("event write: %w", err)
		}

		counters.eventsSent.Add(1)
		counters.eventBytes.Add(uint64(n))
		last[node] = token

		timer := time.NewTimer(cfg.EventTimeout)
		select {
		case <-waiter:
			timer.Stop()
			rtt := time.Since(start)
			counters.eventsComplete.Add(1)
			samples <- rtt
		case <-timer.C:
			engine.forget(token)
			errCounts.tokenMissing.Add(1)
		case <-ctx.Done():
			timer.Stop()
			engine.forget(token)
			return nil
		}

		elapsed := time.Since(start)
		if sleep := period - elapsed; sleep > 0 {
			timer := time.NewTimer(sleep)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
		}
	}
}

func makeToken(workerID int, seq uint64, payloadBytes int) string {
	if payloadBytes <= 0 {
		return ""
	}
	seed := (uint64(workerID) << 32) ^ seq
	base := strings.ToLower(strconv.FormatUint(seed, 36))
	if len(base) >= payloadBytes {
		return base[len(base)-payloadBytes:]
	}
	pad := strings.Repeat("x", payloadBytes-len(base))
	return base + pad
}

type runtimeMetricsSnapshot struct {
	cpuTotalSeconds float64
	cpuGCSeconds    float64

	heapAllocsBytes   uint64
	heapAllocsObjects uint64
}

func readRuntimeMetrics() runtimeMetricsSnapshot {
	samples := []metrics.Sample{
		{Name: "/cpu/classes/total:cpu-seconds"},
		{Name: "/cpu/classes/gc/total:cpu-seconds"},
		{Name: "/gc/heap/allocs:bytes"},
		{Name: "/gc/heap/allocs:objects"},
	}
	metrics.Read(samples)

	var out runtimeMetricsSnapshot
	for _, s := range samples {
		switch s.Name {
		case "/cpu/classes/total:cpu-seconds":
			out.cpuTotalSeconds = s.Value.Float64()
		case "/cpu/classes/gc/total:cpu-seconds":
			out.cpuGCSeconds = s.Value.Float64()
		case "/gc/heap/allocs:bytes":
			out.heapAllocsBytes = s.Value.Uint64()
		case "/gc/heap/allocs:objects":
			out.heapAllocsObjects = s.Value.Uint64()
		}
	}
	return out
}

func cpuFraction(after, before runtimeMetricsSnapshot) float64 {
	total := after.cpuTotalSeconds - before.cpuTotalSeconds
	if total <= 0 {
		return 0
	}
	gc := after.cpuGCSeconds - before.cpuGCSeconds
	if gc < 0 {
		return 0
	}
	return gc / total
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func avgPause(after, before runtime.MemStats) time.Duration {
	gcCount := after.NumGC - before.NumGC
	if gcCount == 0 {
		return 0
	}
	return time.Duration((after.PauseTotalNs - before.PauseTotalNs) / uint64(gcCount))
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

type benchReport struct {
	Version    string         `json:"version"`
	Run        runInfo        `json:"run"`
	Workload   workloadInfo   `json:"workload"`
	LatencyMS  latencyInfo    `json:"latency_ms"`
	Throughput throughputInfo `json:"throughput"`
	GC         gcInfo         `json:"gc"`
	Protocol   protocolInfo   `json:"protocol"`
	Errors     errorInfo      `json:"errors"`
}

type runInfo struct {
	Timestamp string `json:"timestamp"`
	Go        string `json:"go"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	CPUCount  int    `json:"cpu_count"`
	GitCommit string `json:"git_commit,omitempty"`
}

type workloadInfo struct {
	Profile        string  `json:"profile"`
	Workers        int     `json:"workers"`
	Elements       int     `json:"elements"`
	DurationMS     int64   `json:"duration_ms"`
	RPSPerWorker   float64 `json:"rps_per_worker"`
	PayloadBytes   int     `json:"payload_bytes"`
	MaxProcs       int     `json:"max_procs"`
	MemLimitBytes  int64   `json:"mem_limit_bytes"`
	EventTimeoutMS int64   `json:"event_timeout_ms"`
}

type latencyInfo struct {
	Min float64 `json:"min"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

type throughputInfo struct {
	EventsTotal        uint64  `json:"events_total"`
	EventsPerSec       float64 `json:"events_per_sec"`
	EventsPerSecWorker float64 `json:"events_per_sec_per_worker"`
}

type gcInfo struct {
	AllocMB       float64 `json:"alloc_mb"`
	HeapLiveMB    float64 `json:"heap_live_mb"`
	NumGC         uint32  `json:"num_gc"`
	PauseTotalMS  float64 `json:"pause_total_ms"`
	PauseAvgMS    float64 `json:"pause_avg_ms"`
	GCCPUFraction float64 `json:"gc_cpu_fraction"`
	AllocsObjects uint64  `json:"allocs_objects"`
}

type protocolInfo struct {
	EventBytesTotal uint64            `json:"event_bytes_total"`
	OpBytesTotal    uint64            `json:"op_bytes_total"`
	OpFrames        uint64            `json:"op_frames_total"`
	AvgEventBytes   float64           `json:"avg_event_bytes"`
	AvgOpBytes      float64           `json:"avg_op_bytes"`
	OpsPerEvent     float64           `json:"ops_per_event"`
	HostOps         map[string]uint64 `json:"host_ops"`
}

type errorInfo struct {
	TotalErrors         uint64 `json:"total_errors"`
	HandshakeFailures   uint64 `json:"handshake_failures"`
	EventWriteFailures  uint64 `json:"event_write_failures"`
	FrameDecodeFailures uint64 `json:"frame_decode_failures"`
	OpDecodeFailures    uint64 `json:"op_decode_failures"`
	FaultFrames         uint64 `json:"fault_frames"`
	TokenMissing        uint64 `json:"token_missing"`
}

func buildReport(
	cfg benchConfig,
	elapsed time.Duration,
	latencies []time.Duration,
	counters *benchCounters,
	errCounts *benchErrors,
	hostOps *hostOpCounts,
	before runtime.MemStats,
	after runtime.MemStats,
	beforeMetrics runtimeMetricsSnapshot,
	afterMetrics runtimeMetricsSnapshot,
) benchReport {
	eventsTotal := counters.eventsComplete.Load()
	eventsSent := counters.eventsSent.Load()
	opFrames := counters.opFrames.Load()
	eventBytes := counters.eventBytes.Load()
	opBytes := counters.opBytes.Load()

	elapsedSeconds := math.Max(0.001, elapsed.Seconds())
	eventsPerSec := float64(eventsTotal) / elapsedSeconds
	eventsPerSecWorker := eventsPerSec / float64(cfg.Workers)

	latency := latencyInfo{}
	if len(latencies) > 0 {
		latency = latencyInfo{
			Min: ms(latencies[0]),
			P50: ms(percentile(latencies, 0.50)),
			P95: ms(percentile(latencies, 0.95)),
			P99: ms(percentile(latencies, 0.99)),
			Max: ms(latencies[len(latencies)-1]),
		}
	}

	avgEventBytes := 0.0
	if eventsSent > 0 {
		avgEventBytes = float64(eventBytes) / float64(eventsSent)
	}
	avgOpBytes := 0.0
	if opFrames > 0 {
		avgOpBytes = float64(opBytes) / float64(opFrames)
	}
	opsPerEvent := 0.0
	if eventsTotal > 0 {
		opsPerEvent = float64(opFrames) / float64(eventsTotal)
	}

	pauseTotal := time.Duration(after.PauseTotalNs - before.PauseTotalNs)
	pauseAvg := avgPause(after, before)

	report := benchReport{
		Version: "1",
		Run: runInfo{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Go:        runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			CPUCount:  runtime.NumCPU(),
			GitCommit: gitCommit(),
		},
		Workload: workloadInfo{
			Profile:        cfg.Profile,
			Workers:        cfg.Workers,
			Elements:       cfg.Elements,
			DurationMS:     cfg.Duration.Milliseconds(),
			RPSPerWorker:   cfg.RPS,
			PayloadBytes:   cfg.PayloadBytes,
			MaxProcs:       cfg.MaxProcs,
			MemLimitBytes:  cfg.MemLimitBytes,
			EventTimeoutMS: cfg.EventTimeout.Milliseconds(),
		},
		LatencyMS: latency,
		Throughput: throughputInfo{
			EventsTotal:        eventsTotal,
			EventsPerSec:       eventsPerSec,
			EventsPerSecWorker: eventsPerSecWorker,
		},
		GC: gcInfo{
			AllocMB:       float64(after.TotalAlloc-before.TotalAlloc) / (1024 * 1024),
			HeapLiveMB:    float64(after.HeapAlloc) / (1024 * 1024),
			NumGC:         after.NumGC - before.NumGC,
			PauseTotalMS:  ms(pauseTotal),
			PauseAvgMS:    ms(pauseAvg),
			GCCPUFraction: cpuFraction(afterMetrics, beforeMetrics),
			AllocsObjects: afterMetrics.heapAllocsObjects - beforeMetrics.heapAllocsObjects,
		},
		Protocol: protocolInfo{
			EventBytesTotal: eventBytes,
			OpBytesTotal:    opBytes,
			OpFrames:        opFrames,
			AvgEventBytes:   avgEventBytes,
			AvgOpBytes:      avgOpBytes,
			OpsPerEvent:     opsPerEvent,
			HostOps:         hostOps.snapshot(),
		},
		Errors: errorInfo{
			TotalErrors:         errCounts.totalErrors.Load(),
			HandshakeFailures:   errCounts.handshakeFailures.Load(),
			EventWriteFailures:  errCounts.eventWriteFailures.Load(),
			FrameDecodeFailures: errCounts.frameDecodeFailures.Load(),
			OpDecodeFailures:    errCounts.opDecodeFailures.Load(),
			FaultFrames:         errCounts.faultFrames.Load(),
			TokenMissing:        errCounts.tokenMissing.Load(),
		},
	}

	return report
}

func writeSummary(w io.Writer, report benchReport) {
	fmt.Fprintln(w, "=== Sill Bridge Benchmark ===")
	fmt.Fprintf(w, "Profile: %s\n", report.Workload.Profile)
	fmt.Fprintf(w, "Workers: %d\n", report.Workload.Workers)
	fmt.Fprintf(w, "Elements: %d\n", report.Workload.Elements)
	fmt.Fprintf(w, "Duration: %s\n", time.Duration(report.Workload.DurationMS)*time.Millisecond)
	fmt.Fprintf(w, "Target per-worker rate: %.2f events/s\n", report.Workload.RPSPerWorker)
	fmt.Fprintf(w, "Payload bytes: %d\n", report.Workload.PayloadBytes)
	if report.Workload.MaxProcs > 0 {
		fmt.Fprintf(w, "GOMAXPROCS cap: %d\n", report.Workload.MaxProcs)
	}
	if report.Workload.MemLimitBytes > 0 {
		fmt.Fprintf(w, "GOMEMLIMIT cap: %.2f GiB\n", float64(report.Workload.MemLimitBytes)/float64(gib))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Total events: %d\n", report.Throughput.EventsTotal)
	fmt.Fprintf(w, "Throughput: %.1f events/s (%.2f per worker)\n", report.Throughput.EventsPerSec, report.Throughput.EventsPerSecWorker)
	fmt.Fprintf(w, "Errors: %d\n", report.Errors.TotalErrors)
	fmt.Fprintln(w)

	if report.LatencyMS.Max == 0 {
		fmt.Fprintln(w, "No latency samples recorded.")
	} else {
		fmt.Fprintln(w, "RTT (attribute change -> dispatch -> host op echo):")
		fmt.Fprintf(w, "  min: %.2f ms\n", report.LatencyMS.Min)
		fmt.Fprintf(w, "  p50: %.2f ms\n", report.LatencyMS.P50)
		fmt.Fprintf(w, "  p95: %.2f ms\n", report.LatencyMS.P95)
		fmt.Fprintf(w, "  p99: %.2f ms\n", report.LatencyMS.P99)
		fmt.Fprintf(w, "  max: %.2f ms\n", report.LatencyMS.Max)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Protocol (avg per event):")
	fmt.Fprintf(w, "  event bytes: %.1f\n", report.Protocol.AvgEventBytes)
	fmt.Fprintf(w, "  op bytes: %.1f\n", report.Protocol.AvgOpBytes)
	fmt.Fprintf(w, "  ops/event: %.2f\n", report.Protocol.OpsPerEvent)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Go runtime / GC (process-wide):")
	fmt.Fprintf(w, "  alloc:     %.2f MB\n", report.GC.AllocMB)
	fmt.Fprintf(w, "  heap_live: %.2f MB\n", report.GC.HeapLiveMB)
	fmt.Fprintf(w, "  num_gc:    %d\n", report.GC.NumGC)
	fmt.Fprintf(w, "  gc_pause:  %.2f ms (total)\n", report.GC.PauseTotalMS)
	fmt.Fprintf(w, "  gc_pause:  %.2f ms (avg)\n", report.GC.PauseAvgMS)
	fmt.Fprintf(w, "  gc_cpu:    %.2f%%\n", report.GC.GCCPUFraction*100)
}

func writeJSON(path string, report benchReport) error {
	var out io.Writer
	if path == "-" {
		out = os.Stdout
	} else {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func gitCommit() string {
	if val := strings.TrimSpace(os.Getenv("SILL_GIT_COMMIT")); val != "" {
		return val
	}
	if val := strings.TrimSpace(os.Getenv("GIT_COMMIT")); val != "" {
		return val
	}
	cmd := exec.Command("git", "rev-parse", "HEAD")
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
