package custom

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync/atomic"

	sillerrors "github.com/sill-dev/sill/internal/errors"
	"github.com/sill-dev/sill/pkg/dom"
)

// Stage identifies which lifecycle notification a dispatch carries.
type Stage uint8

const (
	StageConstruct Stage = iota
	StageConnect
	StageDisconnect
	StageAdopt
	StageAttribute
	StageDestroy
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageConstruct:
		return "construct"
	case StageConnect:
		return "connect"
	case StageDisconnect:
		return "disconnect"
	case StageAdopt:
		return "adopt"
	case StageAttribute:
		return "attribute"
	case StageDestroy:
		return "destroy"
	default:
		return "unknown"
	}
}

// Notification is the unit of work flowing through the dispatch pipeline.
// Middleware receives it read-only.
type Notification struct {
	// Stage is the lifecycle notification being dispatched.
	Stage Stage

	// Kind is the element's registered kind.
	Kind dom.Name

	// Ref is the element handle the notification targets.
	Ref dom.NodeRef

	// Depth is the dispatch nesting depth; values above 1 mean the
	// notification arrived reentrantly from inside another callback.
	Depth int

	// Change is set for StageAttribute.
	Change *dom.AttributeChange

	// Adoption is set for StageAdopt.
	Adoption *AdoptionContext

	run func() error
}

// Handler processes one notification. The returned error is the contained
// callback failure, if any; it is observational by the time middleware sees
// it and must be passed through unchanged.
type Handler func(n Notification) error

// Middleware wraps notification handling, in the order given to Use.
type Middleware func(next Handler) Handler

// CallbackFailure describes one contained lifecycle callback failure.
type CallbackFailure struct {
	Stage Stage
	Kind  dom.Name
	Ref   dom.NodeRef
	Err   error

	// Stack is set when the callback panicked.
	Stack []byte
}

// Stats is a point-in-time snapshot of dispatcher counters.
type Stats struct {
	Constructed         uint64
	Connected           uint64
	Disconnected        uint64
	Adopted             uint64
	AttributesDelivered uint64
	AttributesFiltered  uint64
	Destroyed           uint64
	Swept               uint64
	UnknownInstance     uint64
	UnknownKind         uint64
	OutOfOrder          uint64
	Failures            uint64
	Reentrant           uint64
}

// DefaultMaxDepth bounds dispatch nesting. A callback that unconditionally
// mutates an observed attribute of its own element would otherwise recurse
// until the stack ran out; past the bound the notification becomes a
// contained failure instead.
const DefaultMaxDepth = 128

// Dispatcher routes host lifecycle notifications to element instances.
//
// All notification methods must be called from one logical thread, the same
// thread the host delivers reentrant notifications on. The dispatcher is not
// safe for concurrent use from multiple goroutines.
type Dispatcher struct {
	host      dom.Host
	reg       *Registry
	logger    *slog.Logger
	maxDepth  int
	onFailure func(CallbackFailure)

	chain    []Middleware
	pipeline Handler

	instances map[uint64]*instance
	depth     int

	stats struct {
		constructed     atomic.Uint64
		connected       atomic.Uint64
		disconnected    atomic.Uint64
		adopted         atomic.Uint64
		attrDelivered   atomic.Uint64
		attrFiltered    atomic.Uint64
		destroyed       atomic.Uint64
		swept           atomic.Uint64
		unknownInstance atomic.Uint64
		unknownKind     atomic.Uint64
		outOfOrder      atomic.Uint64
		failures        atomic.Uint64
		reentrant       atomic.Uint64
	}
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithFailureHandler installs a hook invoked for every contained callback
// failure, after logging.
func WithFailureHandler(fn func(CallbackFailure)) Option {
	return func(d *Dispatcher) {
		d.onFailure = fn
	}
}

// WithMiddleware appends dispatch middleware.
func WithMiddleware(mw ...Middleware) Option {
	return func(d *Dispatcher) {
		d.chain = append(d.chain, mw...)
	}
}

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxDepth = n
		}
	}
}

// NewDispatcher creates a dispatcher for the given host and registry.
func NewDispatcher(host dom.Host, reg *Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		host:      host,
		reg:       reg,
		logger:    slog.Default(),
		maxDepth:  DefaultMaxDepth,
		instances: make(map[uint64]*instance),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Use appends dispatch middleware. Middleware must be installed before the
// first notification; later calls are ignored with a warning.
func (d *Dispatcher) Use(mw ...Middleware) {
	if d.pipeline != nil {
		d.logger.Warn("middleware added after dispatch started; ignored")
		return
	}
	d.chain = append(d.chain, mw...)
}

// Host returns the host this dispatcher drives.
func (d *Dispatcher) Host() dom.Host {
	return d.host
}

// Registry returns the kind registry.
func (d *Dispatcher) Registry() *Registry {
	return d.reg
}

// InstanceCount returns the number of live instances.
func (d *Dispatcher) InstanceCount() int {
	return len(d.instances)
}

// InstancePhase returns the lifecycle phase for a handle, if an instance
// exists.
func (d *Dispatcher) InstancePhase(ref dom.NodeRef) (Phase, bool) {
	inst, ok := d.instances[ref.ID()]
	if !ok {
		return 0, false
	}
	return inst.phase, true
}

// Stats returns a snapshot of the dispatcher counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Constructed:         d.stats.constructed.Load(),
		Connected:           d.stats.connected.Load(),
		Disconnected:        d.stats.disconnected.Load(),
		Adopted:             d.stats.adopted.Load(),
		AttributesDelivered: d.stats.attrDelivered.Load(),
		AttributesFiltered:  d.stats.attrFiltered.Load(),
		Destroyed:           d.stats.destroyed.Load(),
		Swept:               d.stats.swept.Load(),
		UnknownInstance:     d.stats.unknownInstance.Load(),
		UnknownKind:         d.stats.unknownKind.Load(),
		OutOfOrder:          d.stats.outOfOrder.Load(),
		Failures:            d.stats.failures.Load(),
		Reentrant:           d.stats.reentrant.Load(),
	}
}

// HandleConstructed materializes an instance for a freshly created element.
//
// An unknown kind is dropped with a warning: the host may share one channel
// across registries. A second construction for a live handle violates the
// host contract and panics.
func (d *Dispatcher) HandleConstructed(ref dom.NodeRef, kind dom.Name) {
	d.enter()
	defer d.exit()

	if ref.IsZero() {
		d.logger.Warn("construct with zero handle", "kind", kind.String())
		return
	}
	entry, ok := d.reg.lookup(kind.String())
	if !ok {
		d.stats.unknownKind.Add(1)
		d.logger.Warn("construct for unregistered kind",
			"kind", kind.String(),
			"node", ref.String())
		return
	}
	if _, exists := d.instances[ref.ID()]; exists {
		panic(sillerrors.New("E021").
			WithDetail(fmt.Sprintf("element %s, kind %s", ref.String(), kind.String())))
	}

	inst := &instance{ref: ref, entry: entry, phase: PhaseConstructing}
	d.instances[ref.ID()] = inst

	err := d.dispatch(Notification{Stage: StageConstruct, Kind: entry.kind, Ref: ref}, func() error {
		state, err := entry.construct(d.host, inst)
		if err != nil {
			return err
		}
		inst.state = state
		return nil
	})
	if err != nil {
		// The instance never materializes. Anything queued dies with it.
		if cur, ok := d.instances[ref.ID()]; ok && cur == inst {
			delete(d.instances, ref.ID())
		}
		return
	}
	if cur, ok := d.instances[ref.ID()]; !ok || cur != inst {
		// Destroyed from inside its own construction. The finalize pass ran
		// before the state existed, so hand the state over now.
		inst.phase = PhaseFinalized
		state := inst.state
		inst.state = nil
		if entry.finalize != nil && state != nil {
			d.dispatch(Notification{Stage: StageDestroy, Kind: entry.kind, Ref: ref}, func() error {
				entry.finalize(state)
				return nil
			})
		}
		return
	}

	inst.phase = PhaseDisconnected
	d.stats.constructed.Add(1)
	d.flushPending(inst)
}

// HandleConnected transitions an instance into a live tree.
func (d *Dispatcher) HandleConnected(ref dom.NodeRef) {
	d.enter()
	defer d.exit()

	inst, ok := d.lookup(ref, StageConnect)
	if !ok {
		return
	}
	if inst.phase != PhaseDisconnected {
		d.dropOutOfOrder(inst, StageConnect)
		return
	}
	inst.phase = PhaseConnected
	d.stats.connected.Add(1)
	d.dispatch(Notification{Stage: StageConnect, Kind: inst.entry.kind, Ref: ref}, func() error {
		if inst.entry.connected != nil {
			inst.entry.connected(d.host, inst)
		}
		return nil
	})
}

// HandleDisconnected transitions an instance out of a live tree.
func (d *Dispatcher) HandleDisconnected(ref dom.NodeRef) {
	d.enter()
	defer d.exit()

	inst, ok := d.lookup(ref, StageDisconnect)
	if !ok {
		return
	}
	if inst.phase != PhaseConnected {
		d.dropOutOfOrder(inst, StageDisconnect)
		return
	}
	inst.phase = PhaseDisconnected
	d.stats.disconnected.Add(1)
	d.dispatch(Notification{Stage: StageDisconnect, Kind: inst.entry.kind, Ref: ref}, func() error {
		if inst.entry.disconnected != nil {
			inst.entry.disconnected(d.host, inst)
		}
		return nil
	})
}

// HandleAdopted routes a document move. The adopted callback runs in the
// transient Adopting phase, then the instance settles to Connected or
// Disconnected per the host-reported attachment state.
func (d *Dispatcher) HandleAdopted(ref dom.NodeRef, newDoc dom.DocumentRef, stillConnected bool) {
	d.enter()
	defer d.exit()

	inst, ok := d.lookup(ref, StageAdopt)
	if !ok {
		return
	}
	if inst.phase == PhaseConstructing {
		d.dropOutOfOrder(inst, StageAdopt)
		return
	}

	ctx := AdoptionContext{
		OldDocument: inst.doc,
		NewDocument: newDoc,
		Connected:   stillConnected,
	}
	inst.phase = PhaseAdopting
	inst.doc = newDoc
	d.stats.adopted.Add(1)
	d.dispatch(Notification{Stage: StageAdopt, Kind: inst.entry.kind, Ref: ref, Adoption: &ctx}, func() error {
		if inst.entry.adopted != nil {
			inst.entry.adopted(d.host, inst, ctx)
		}
		return nil
	})
	if inst.phase != PhaseAdopting {
		// Destroyed from inside the adopted callback.
		return
	}
	if stillConnected {
		inst.phase = PhaseConnected
	} else {
		inst.phase = PhaseDisconnected
	}
}

// HandleAttributeChanged routes an attribute mutation. Names outside the
// kind's observed set are filtered here, before any callback machinery runs.
// Changes arriving while the instance is still constructing are queued and
// delivered after construction settles.
func (d *Dispatcher) HandleAttributeChanged(ref dom.NodeRef, name dom.Name, old, new dom.AttributeValue) {
	d.enter()
	defer d.exit()

	inst, ok := d.lookup(ref, StageAttribute)
	if !ok {
		return
	}
	if !inst.entry.observes(name) {
		d.stats.attrFiltered.Add(1)
		return
	}
	change := dom.AttributeChange{Name: name, Old: old, New: new}
	if inst.phase == PhaseConstructing || len(inst.pending) > 0 {
		// The queue also catches changes arriving while an earlier flush is
		// still draining, which keeps delivery in host order.
		inst.pending = append(inst.pending, change)
		return
	}
	d.deliverAttribute(inst, change)
}

// HandleDestroyed tears an instance down: a still-connected instance is
// disconnected first, then the entry leaves the table, then the finalizer
// runs with ownership of the state. Later notifications for the same handle
// are benign unknown-instance drops.
func (d *Dispatcher) HandleDestroyed(ref dom.NodeRef) {
	d.enter()
	defer d.exit()

	inst, ok := d.lookup(ref, StageDestroy)
	if !ok {
		return
	}
	d.finalize(inst)
	d.stats.destroyed.Add(1)
}

// Sweep reaps instances whose handles the host no longer reports alive.
// Hosts without destruction notifications call this from an idle pass.
// Reaped instances are finalized in handle order; the count is returned.
func (d *Dispatcher) Sweep(alive func(dom.NodeRef) bool) int {
	d.enter()
	defer d.exit()

	var dead []*instance
	for _, inst := range d.instances {
		if !alive(inst.ref) {
			dead = append(dead, inst)
		}
	}
	sort.Slice(dead, func(i, j int) bool { return dead[i].ref.ID() < dead[j].ref.ID() })
	for _, inst := range dead {
		d.finalize(inst)
		d.stats.swept.Add(1)
	}
	return len(dead)
}

func (d *Dispatcher) enter() {
	d.reg.seal()
	d.depth++
	if d.depth > 1 {
		d.stats.reentrant.Add(1)
	}
}

func (d *Dispatcher) exit() {
	d.depth--
}

func (d *Dispatcher) lookup(ref dom.NodeRef, stage Stage) (*instance, bool) {
	inst, ok := d.instances[ref.ID()]
	if !ok || inst.phase == PhaseFinalized {
		d.stats.unknownInstance.Add(1)
		d.logger.Debug("notification for unknown instance",
			"stage", stage.String(),
			"node", ref.String())
		return nil, false
	}
	return inst, true
}

func (d *Dispatcher) dropOutOfOrder(inst *instance, stage Stage) {
	d.stats.outOfOrder.Add(1)
	d.logger.Warn("notification out of order",
		"stage", stage.String(),
		"kind", inst.entry.kind.String(),
		"node", inst.ref.String(),
		"phase", inst.phase.String())
}

func (d *Dispatcher) deliverAttribute(inst *instance, change dom.AttributeChange) {
	d.stats.attrDelivered.Add(1)
	ch := change
	d.dispatch(Notification{Stage: StageAttribute, Kind: inst.entry.kind, Ref: inst.ref, Change: &ch}, func() error {
		if inst.entry.attributeChanged != nil {
			inst.entry.attributeChanged(d.host, inst, ch)
		}
		return nil
	})
}

func (d *Dispatcher) flushPending(inst *instance) {
	for len(inst.pending) > 0 && inst.phase != PhaseFinalized {
		next := inst.pending[0]
		inst.pending = inst.pending[1:]
		d.deliverAttribute(inst, next)
	}
	inst.pending = nil
}

// finalize removes inst from the table and runs teardown. Removal happens
// before the finalizer so reentrant notifications during teardown see an
// unknown instance.
func (d *Dispatcher) finalize(inst *instance) {
	if inst.phase == PhaseConnected {
		inst.phase = PhaseDisconnected
		d.stats.disconnected.Add(1)
		d.dispatch(Notification{Stage: StageDisconnect, Kind: inst.entry.kind, Ref: inst.ref}, func() error {
			if inst.entry.disconnected != nil {
				inst.entry.disconnected(d.host, inst)
			}
			return nil
		})
	}
	delete(d.instances, inst.ref.ID())
	inst.phase = PhaseFinalized
	state := inst.state
	inst.state = nil
	d.dispatch(Notification{Stage: StageDestroy, Kind: inst.entry.kind, Ref: inst.ref}, func() error {
		if inst.entry.finalize != nil && state != nil {
			inst.entry.finalize(state)
		}
		return nil
	})
}

// dispatch pushes one notification through the middleware pipeline into the
// contained invocation. The returned error reports a contained failure; it
// never propagates further than the calling Handle method.
func (d *Dispatcher) dispatch(n Notification, fn func() error) error {
	n.run = fn
	n.Depth = d.depth
	if d.depth > d.maxDepth {
		err := sillerrors.New("E022").
			WithDetail(fmt.Sprintf("dispatch depth %d exceeds limit %d", d.depth, d.maxDepth))
		d.containFailure(n, err, nil)
		return err
	}
	if d.pipeline == nil {
		d.buildPipeline()
	}
	return d.pipeline(n)
}

func (d *Dispatcher) buildPipeline() {
	h := d.invoke
	for i := len(d.chain) - 1; i >= 0; i-- {
		h = d.chain[i](h)
	}
	d.pipeline = h
}

// invoke runs the notification's callback with panic containment. Both panic
// and error outcomes are recorded here, then returned outward so middleware
// can observe them.
func (d *Dispatcher) invoke(n Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			err = panicError(r)
			d.containFailure(n, err, stack)
		}
	}()
	if runErr := n.run(); runErr != nil {
		err = sillerrors.FromError(runErr, "E022")
		d.containFailure(n, err, nil)
	}
	return err
}

func panicError(r any) error {
	if e, ok := r.(error); ok {
		return sillerrors.FromError(e, "E022")
	}
	return sillerrors.New("E022").WithDetail(fmt.Sprintf("panic: %v", r))
}

func (d *Dispatcher) containFailure(n Notification, err error, stack []byte) {
	d.stats.failures.Add(1)
	args := []any{
		"stage", n.Stage.String(),
		"kind", n.Kind.String(),
		"node", n.Ref.String(),
		"depth", n.Depth,
		"error", err,
	}
	if stack != nil {
		args = append(args, "stack", string(stack))
	}
	d.logger.Error("lifecycle callback failed", args...)
	if d.onFailure != nil {
		d.onFailure(CallbackFailure{Stage: n.Stage, Kind: n.Kind, Ref: n.Ref, Err: err, Stack: stack})
	}
}
