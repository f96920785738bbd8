package remote

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sill-dev/sill/pkg/custom"
	"github.com/sill-dev/sill/pkg/dom"
	"github.com/sill-dev/sill/pkg/protocol"
)

// errSessionClosed resolves pending op calls when the connection drops.
var errSessionClosed = errors.New("remote: session closed")

// notification is one decoded engine frame waiting for the dispatch loop.
// Exactly one field is set.
type notification struct {
	lifecycle *protocol.Lifecycle
	attr      *protocol.AttributeChange
}

// session is one engine connection. The reader goroutine decodes frames,
// resolves op results against the pending table, and queues lifecycle
// notifications; the dispatch loop drains the queue into the dispatcher.
// Only the dispatch loop calls dispatcher methods, so lifecycle callbacks
// keep their single-thread ordering guarantees.
type session struct {
	conn    *websocket.Conn
	cfg     *config
	logger  *slog.Logger
	metrics *endpointMetrics

	disp *custom.Dispatcher

	writeMu sync.Mutex
	closed  atomic.Bool
	done    chan struct{}

	notifs chan notification

	callMu   sync.Mutex
	pending  map[uint64]chan *protocol.Result
	nextCall atomic.Uint64

	pingSeq       atomic.Uint64
	bytesSent     atomic.Uint64
	bytesReceived atomic.Uint64
}

func newSession(conn *websocket.Conn, cfg *config, logger *slog.Logger, metrics *endpointMetrics) *session {
	return &session{
		conn:    conn,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		done:    make(chan struct{}),
		notifs:  make(chan notification, cfg.queueSize),
		pending: make(map[uint64]chan *protocol.Result),
	}
}

// run drives the session until the connection closes. It blocks the caller
// on the dispatch loop; the reader and keepalive run as goroutines.
func (s *session) run() {
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		s.readLoop()
	}()

	if s.cfg.pingInterval > 0 {
		go s.pingLoop()
	}

	s.dispatchLoop()
	<-readerDone
}

// readLoop reads frames until the connection fails or the engine says bye.
func (s *session) readLoop() {
	defer s.shutdown("read loop exit")

	for {
		s.conn.SetReadDeadline(time.Now().Add(s.cfg.readTimeout))

		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("read error", "error", err)
			}
			return
		}
		s.bytesReceived.Add(uint64(len(msg)))

		if err := s.cfg.limits.CheckFrame(len(msg)); err != nil {
			s.logger.Error("oversized frame", "size", len(msg), "error", err)
			s.sendFault(protocol.NewFatalFault(protocol.FaultTooLarge, "frame exceeds limit"))
			return
		}

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			s.logger.Error("frame decode error", "error", err)
			continue
		}
		s.metrics.frame(frame.Type.String())

		switch frame.Type {
		case protocol.FrameLifecycle:
			lc, err := protocol.DecodeLifecycle(frame.Payload)
			if err != nil {
				s.logger.Error("lifecycle decode error", "error", err)
				continue
			}
			if !s.enqueue(notification{lifecycle: lc}) {
				return
			}

		case protocol.FrameAttribute:
			ac, err := protocol.DecodeAttributeChange(frame.Payload)
			if err != nil {
				s.logger.Error("attribute decode error", "error", err)
				continue
			}
			if !s.enqueue(notification{attr: ac}) {
				return
			}

		case protocol.FrameResult:
			res, err := protocol.DecodeResult(frame.Payload)
			if err != nil {
				s.logger.Error("result decode error", "error", err)
				continue
			}
			s.resolve(res)

		case protocol.FrameControl:
			if !s.handleControl(frame.Payload) {
				return
			}

		case protocol.FrameFault:
			f, err := protocol.DecodeFault(frame.Payload)
			if err != nil {
				s.logger.Error("fault decode error", "error", err)
				continue
			}
			s.logger.Error("engine fault", "code", f.Code.String(), "message", f.Message, "fatal", f.Fatal)
			if f.Fatal {
				return
			}

		default:
			s.logger.Warn("unknown frame type", "type", frame.Type)
		}
	}
}

// enqueue hands a notification to the dispatch loop. It never blocks: a
// full queue means the dispatcher cannot keep up, and stalling the reader
// here would also stall op results, so the session ends instead.
func (s *session) enqueue(n notification) bool {
	select {
	case s.notifs <- n:
		return true
	default:
		s.logger.Error("notification queue overflow", "depth", cap(s.notifs))
		s.sendFault(protocol.NewFatalFault(protocol.FaultRejected, "notification queue overflow"))
		return false
	}
}

// dispatchLoop delivers queued notifications until the session ends, then
// finalizes every live instance: the engine connection owns the tree, so a
// closed connection means every node is gone.
func (s *session) dispatchLoop() {
	defer s.disp.Sweep(func(dom.NodeRef) bool { return false })

	for {
		select {
		case n := <-s.notifs:
			s.deliver(n)
		case <-s.done:
			return
		}
	}
}

func (s *session) deliver(n notification) {
	switch {
	case n.lifecycle != nil:
		lc := n.lifecycle
		s.metrics.lifecycle(lc.Event.String())
		ref := dom.NodeRefFromID(lc.Node)

		switch lc.Event {
		case protocol.LifecycleConstructed:
			kind, err := dom.ParseKindName(lc.Kind)
			if err != nil {
				s.logger.Error("invalid kind in lifecycle frame", "kind", lc.Kind, "error", err)
				return
			}
			s.disp.HandleConstructed(ref, kind)
		case protocol.LifecycleConnected:
			s.disp.HandleConnected(ref)
		case protocol.LifecycleDisconnected:
			s.disp.HandleDisconnected(ref)
		case protocol.LifecycleAdopted:
			s.disp.HandleAdopted(ref, dom.DocumentRefFromID(lc.Doc), lc.Connected)
		case protocol.LifecycleDestroyed:
			s.disp.HandleDestroyed(ref)
		}

	case n.attr != nil:
		ac := n.attr
		s.metrics.lifecycle("AttributeChanged")
		name, err := dom.ParseName(ac.Name)
		if err != nil {
			s.logger.Error("invalid attribute name in frame", "name", ac.Name, "error", err)
			return
		}
		s.disp.HandleAttributeChanged(dom.NodeRefFromID(ac.Node), name, attrValue(ac.Old), attrValue(ac.New))
	}
}

func attrValue(v protocol.AttrValue) dom.AttributeValue {
	if !v.Present {
		return dom.NoValue()
	}
	return dom.SomeValue(v.Value)
}

// handleControl processes a control frame. It returns false when the
// session should end.
func (s *session) handleControl(payload []byte) bool {
	c, err := protocol.DecodeControl(payload)
	if err != nil {
		s.logger.Error("control decode error", "error", err)
		return true
	}

	switch c.Type {
	case protocol.ControlPing:
		if err := s.writeFrame(protocol.FrameControl, protocol.EncodeControl(protocol.NewPong(c.Seq)), false); err != nil {
			return false
		}
	case protocol.ControlPong:
		s.logger.Debug("pong", "seq", c.Seq)
	case protocol.ControlBye:
		s.logger.Info("engine closing", "reason", c.Reason)
		return false
	}
	return true
}

// pingLoop sends keepalive pings until the session ends.
func (s *session) pingLoop() {
	ticker := time.NewTicker(s.cfg.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ping := protocol.NewPing(s.pingSeq.Add(1))
			if err := s.writeFrame(protocol.FrameControl, protocol.EncodeControl(ping), false); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

// call sends an op frame and blocks until the engine's result, the call
// timeout, or session shutdown. The caller's op gains its call ID here.
func (s *session) call(op *protocol.Op) (*protocol.Result, error) {
	op.ID = s.nextCall.Add(1)

	ch := make(chan *protocol.Result, 1)
	s.callMu.Lock()
	s.pending[op.ID] = ch
	s.callMu.Unlock()
	defer func() {
		s.callMu.Lock()
		delete(s.pending, op.ID)
		s.callMu.Unlock()
	}()

	start := time.Now()
	if err := s.writeFrame(protocol.FrameOp, protocol.EncodeOp(op), false); err != nil {
		s.metrics.op(op.Type.String(), "write_error", time.Since(start).Seconds())
		return nil, err
	}

	timer := time.NewTimer(s.cfg.callTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		status := "ok"
		if !res.OK {
			status = "fault"
		}
		s.metrics.op(op.Type.String(), status, time.Since(start).Seconds())
		return res, nil
	case <-timer.C:
		s.metrics.op(op.Type.String(), "timeout", time.Since(start).Seconds())
		return nil, fmt.Errorf("remote: %s call %d timed out after %s", op.Type, op.ID, s.cfg.callTimeout)
	case <-s.done:
		return nil, errSessionClosed
	}
}

// resolve routes an engine result to the waiting call, if any.
func (s *session) resolve(res *protocol.Result) {
	s.callMu.Lock()
	ch, ok := s.pending[res.ID]
	if ok {
		delete(s.pending, res.ID)
	}
	s.callMu.Unlock()

	if !ok {
		s.logger.Warn("result for unknown call", "id", res.ID)
		return
	}
	ch <- res
}

// writeFrame encodes and sends one frame under the write mutex.
func (s *session) writeFrame(ft protocol.FrameType, payload []byte, urgent bool) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed.Load() {
		return errSessionClosed
	}

	frame := protocol.NewFrame(ft, payload)
	if urgent {
		frame.Flags |= protocol.FlagUrgent
	}
	data := frame.Encode()

	s.conn.SetWriteDeadline(time.Now().Add(s.cfg.writeTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		s.logger.Error("write error", "error", err)
		return err
	}
	s.bytesSent.Add(uint64(len(data)))
	return nil
}

func (s *session) sendFault(f *protocol.Fault) {
	s.writeFrame(protocol.FrameFault, protocol.EncodeFault(f), true)
}

// close says bye to the engine and shuts the session down. Used for
// bridge-initiated shutdown; a dead socket goes through shutdown directly.
func (s *session) close(reason string) {
	if s.closed.Load() {
		return
	}
	s.writeFrame(protocol.FrameControl, protocol.EncodeControl(protocol.NewBye(reason)), true)
	s.shutdown(reason)
}

func (s *session) shutdown(reason string) {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	close(s.done)
	s.conn.Close()
	s.logger.Info("engine session closed",
		"reason", reason,
		"bytes_sent", s.bytesSent.Load(),
		"bytes_received", s.bytesReceived.Load())
}
