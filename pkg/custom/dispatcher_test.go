package custom_test

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/sill-dev/sill/pkg/custom"
	"github.com/sill-dev/sill/pkg/dom"
	"github.com/sill-dev/sill/pkg/hosttest"
)

var (
	badgeKind = dom.MustKindName("status-badge")
	msgAttr   = dom.MustName("message")
	colorAttr = dom.MustName("color")
)

type badgeState struct {
	trace *[]string
}

// rig bundles a registry, tree, dispatcher and driver for one test.
type rig struct {
	reg  *custom.Registry
	tree *hosttest.Tree
	disp *custom.Dispatcher
	dr   *hosttest.Driver
}

func newRig(t *testing.T, opts ...custom.Option) *rig {
	t.Helper()
	reg := custom.NewRegistry()
	tree := hosttest.New()
	all := append([]custom.Option{
		custom.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	disp := custom.NewDispatcher(tree, reg, all...)
	return &rig{reg: reg, tree: tree, disp: disp, dr: hosttest.NewDriver(tree, disp)}
}

// defineTracing registers badgeKind with callbacks that append one line per
// event to trace.
func defineTracing(t *testing.T, r *rig, trace *[]string, observed ...dom.Name) {
	t.Helper()
	err := custom.Define(r.reg, badgeKind, custom.Descriptor[badgeState]{
		ObservedAttributes: observed,
		New: func(el custom.Element[badgeState]) (*badgeState, error) {
			*trace = append(*trace, "new")
			return &badgeState{trace: trace}, nil
		},
		Connected: func(el custom.Element[badgeState]) {
			*trace = append(*trace, "connected")
		},
		Disconnected: func(el custom.Element[badgeState]) {
			*trace = append(*trace, "disconnected")
		},
		AttributeChanged: func(el custom.Element[badgeState], ch dom.AttributeChange) {
			*trace = append(*trace, fmt.Sprintf("attr %s %q -> %q", ch.Name, ch.Old.Or(""), ch.New.Or("")))
		},
		Finalizer: func(s *badgeState) {
			*trace = append(*trace, "finalized")
		},
	})
	if err != nil {
		t.Fatalf("define failed: %v", err)
	}
}

func wantTrace(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected trace %q, got %q", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected trace %q, got %q", want, got)
		}
	}
}

func TestConstructionCreatesOneInstance(t *testing.T) {
	r := newRig(t)
	var trace []string
	defineTracing(t, r, &trace)

	ref := r.dr.CreateElement(badgeKind)
	wantTrace(t, trace, "new")

	phase, ok := r.disp.InstancePhase(ref)
	if !ok {
		t.Fatal("expected instance after construction")
	}
	if phase != custom.PhaseDisconnected {
		t.Errorf("expected phase disconnected, got %s", phase)
	}
	if n := r.disp.InstanceCount(); n != 1 {
		t.Errorf("expected 1 instance, got %d", n)
	}

	// A second construction notification for a live handle is a host
	// contract violation and panics.
	func() {
		defer func() {
			rec := recover()
			if rec == nil {
				t.Fatal("expected second construction to panic")
			}
			err, ok := rec.(error)
			if !ok {
				t.Fatalf("expected error panic value, got %T", rec)
			}
			if !strings.Contains(err.Error(), "E021") {
				t.Errorf("expected E021 panic, got %v", err)
			}
		}()
		r.disp.HandleConstructed(ref, badgeKind)
	}()

	wantTrace(t, trace, "new")
	if n := r.disp.InstanceCount(); n != 1 {
		t.Errorf("expected instance table untouched, got %d entries", n)
	}
}

func TestUnknownKindDropped(t *testing.T) {
	r := newRig(t)
	var trace []string
	defineTracing(t, r, &trace)

	ref := r.tree.CreateElement("mystery-box")
	r.disp.HandleConstructed(ref, dom.MustKindName("mystery-box"))

	if n := r.disp.InstanceCount(); n != 0 {
		t.Errorf("expected no instance for unregistered kind, got %d", n)
	}
	if st := r.disp.Stats(); st.UnknownKind != 1 {
		t.Errorf("expected 1 unknown-kind drop, got %d", st.UnknownKind)
	}
}

func TestConstructionFailureRemovesInstance(t *testing.T) {
	r := newRig(t)
	custom.MustDefine(r.reg, badgeKind, custom.Descriptor[badgeState]{
		New: func(el custom.Element[badgeState]) (*badgeState, error) {
			return nil, errors.New("boot failed")
		},
	})
	custom.MustDefine(r.reg, dom.MustKindName("null-widget"), custom.Descriptor[badgeState]{
		New: func(el custom.Element[badgeState]) (*badgeState, error) {
			return nil, nil
		},
	})

	ref := r.dr.CreateElement(badgeKind)
	if _, ok := r.disp.InstancePhase(ref); ok {
		t.Error("expected failed construction to leave no instance")
	}

	nullRef := r.dr.CreateElement(dom.MustKindName("null-widget"))
	if _, ok := r.disp.InstancePhase(nullRef); ok {
		t.Error("expected nil state without error to count as failure")
	}

	st := r.disp.Stats()
	if st.Constructed != 0 {
		t.Errorf("expected 0 constructed, got %d", st.Constructed)
	}
	if st.Failures != 2 {
		t.Errorf("expected 2 contained failures, got %d", st.Failures)
	}

	// Later notifications for the dead handle are benign.
	r.disp.HandleConnected(ref)
	if st := r.disp.Stats(); st.UnknownInstance != 1 {
		t.Errorf("expected unknown-instance drop, got %d", st.UnknownInstance)
	}
}

func TestLifecycleOrdering(t *testing.T) {
	r := newRig(t)
	var trace []string
	defineTracing(t, r, &trace)

	ref := r.dr.CreateElement(badgeKind)
	if err := r.dr.Connect(ref); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if err := r.dr.Disconnect(ref); err != nil {
		t.Fatalf("disconnect failed: %v", err)
	}
	if err := r.dr.Connect(ref); err != nil {
		t.Fatalf("reconnect failed: %v", err)
	}

	wantTrace(t, trace, "new", "connected", "disconnected", "connected")

	phase, _ := r.disp.InstancePhase(ref)
	if phase != custom.PhaseConnected {
		t.Errorf("expected phase connected, got %s", phase)
	}
	st := r.disp.Stats()
	if st.Connected != 2 || st.Disconnected != 1 {
		t.Errorf("expected 2 connects and 1 disconnect, got %d and %d", st.Connected, st.Disconnected)
	}
}

func TestOutOfOrderNotificationsDropped(t *testing.T) {
	r := newRig(t)
	var trace []string
	defineTracing(t, r, &trace)

	ref := r.dr.CreateElement(badgeKind)

	// Disconnect while already disconnected.
	r.disp.HandleDisconnected(ref)
	// Connect twice in a row.
	r.disp.HandleConnected(ref)
	r.disp.HandleConnected(ref)

	wantTrace(t, trace, "new", "connected")
	if st := r.disp.Stats(); st.OutOfOrder != 2 {
		t.Errorf("expected 2 out-of-order drops, got %d", st.OutOfOrder)
	}
	phase, _ := r.disp.InstancePhase(ref)
	if phase != custom.PhaseConnected {
		t.Errorf("expected phase connected, got %s", phase)
	}
}

func TestAttributeFilter(t *testing.T) {
	r := newRig(t)
	var trace []string
	defineTracing(t, r, &trace, msgAttr)

	ref := r.dr.CreateElement(badgeKind)
	if err := r.dr.SetAttribute(ref, msgAttr, "hi"); err != nil {
		t.Fatalf("set attribute failed: %v", err)
	}
	if err := r.dr.SetAttribute(ref, colorAttr, "red"); err != nil {
		t.Fatalf("set attribute failed: %v", err)
	}
	if err := r.dr.RemoveAttribute(ref, msgAttr); err != nil {
		t.Fatalf("remove attribute failed: %v", err)
	}
	if err := r.dr.RemoveAttribute(ref, colorAttr); err != nil {
		t.Fatalf("remove attribute failed: %v", err)
	}

	wantTrace(t, trace,
		"new",
		`attr message "" -> "hi"`,
		`attr message "hi" -> ""`,
	)
	st := r.disp.Stats()
	if st.AttributesDelivered != 2 {
		t.Errorf("expected 2 deliveries, got %d", st.AttributesDelivered)
	}
	if st.AttributesFiltered != 2 {
		t.Errorf("expected 2 filtered changes, got %d", st.AttributesFiltered)
	}
}

func TestAttributeQueueDuringConstruction(t *testing.T) {
	r := newRig(t)
	var trace []string
	err := custom.Define(r.reg, badgeKind, custom.Descriptor[badgeState]{
		ObservedAttributes: []dom.Name{msgAttr},
		New: func(el custom.Element[badgeState]) (*badgeState, error) {
			trace = append(trace, "new:start")
			if err := el.SetAttribute(msgAttr, "boot"); err != nil {
				return nil, err
			}
			trace = append(trace, "new:end")
			return &badgeState{}, nil
		},
		AttributeChanged: func(el custom.Element[badgeState], ch dom.AttributeChange) {
			// State access proves delivery waited for construction.
			el.With(func(s *badgeState) {})
			trace = append(trace, fmt.Sprintf("attr %q -> %q", ch.Old.Or(""), ch.New.Or("")))
		},
	})
	if err != nil {
		t.Fatalf("define failed: %v", err)
	}

	ref := r.dr.CreateElement(badgeKind)
	wantTrace(t, trace, "new:start", "new:end", `attr "" -> "boot"`)

	if st := r.disp.Stats(); st.Failures != 0 {
		t.Errorf("expected no failures, got %d", st.Failures)
	}
	got, err := r.tree.Attribute(ref, msgAttr)
	if err != nil || !got.Present || got.Value != "boot" {
		t.Errorf("expected attribute boot on the node, got %v (%v)", got, err)
	}
}

func TestReentrantAttributeFromConnectedCallback(t *testing.T) {
	r := newRig(t)
	var trace []string
	err := custom.Define(r.reg, badgeKind, custom.Descriptor[badgeState]{
		ObservedAttributes: []dom.Name{msgAttr},
		New: func(el custom.Element[badgeState]) (*badgeState, error) {
			return &badgeState{}, nil
		},
		Connected: func(el custom.Element[badgeState]) {
			trace = append(trace, "connected:enter")
			if err := el.SetAttribute(msgAttr, "ready"); err != nil {
				trace = append(trace, "connected:error")
			}
			trace = append(trace, "connected:exit")
		},
		AttributeChanged: func(el custom.Element[badgeState], ch dom.AttributeChange) {
			trace = append(trace, "attr "+ch.New.Or(""))
		},
	})
	if err != nil {
		t.Fatalf("define failed: %v", err)
	}

	ref := r.dr.CreateElement(badgeKind)
	if err := r.dr.Connect(ref); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	// The nested notification runs before the connected callback returns.
	wantTrace(t, trace, "connected:enter", "attr ready", "connected:exit")

	st := r.disp.Stats()
	if st.Reentrant == 0 {
		t.Error("expected reentrant dispatch to be counted")
	}
	if st.Failures != 0 {
		t.Errorf("expected no failures, got %d", st.Failures)
	}
}

func TestAliasedBorrowContained(t *testing.T) {
	var failures []custom.CallbackFailure
	r := newRig(t, custom.WithFailureHandler(func(f custom.CallbackFailure) {
		failures = append(failures, f)
	}))

	var trace []string
	err := custom.Define(r.reg, badgeKind, custom.Descriptor[badgeState]{
		ObservedAttributes: []dom.Name{msgAttr, colorAttr},
		New: func(el custom.Element[badgeState]) (*badgeState, error) {
			return &badgeState{}, nil
		},
		Connected: func(el custom.Element[badgeState]) {
			trace = append(trace, "connected")
		},
		AttributeChanged: func(el custom.Element[badgeState], ch dom.AttributeChange) {
			if ch.Name != msgAttr {
				return
			}
			el.With(func(s *badgeState) {
				trace = append(trace, "borrow:enter")
				// Mutating an observed attribute inside the borrow reenters
				// the callback while the state is still held.
				_ = el.SetAttribute(colorAttr, "red")
				trace = append(trace, "borrow:exit")
			})
			trace = append(trace, "outer:done")
		},
	})
	if err != nil {
		t.Fatalf("define failed: %v", err)
	}

	ref := r.dr.CreateElement(badgeKind)
	if err := r.dr.SetAttribute(ref, msgAttr, "hi"); err != nil {
		t.Fatalf("set attribute failed: %v", err)
	}

	// The overlapping borrow fails inside the nested callback; the outer
	// callback continues unharmed.
	wantTrace(t, trace, "borrow:enter", "borrow:exit", "outer:done")

	if len(failures) != 1 {
		t.Fatalf("expected 1 contained failure, got %d", len(failures))
	}
	if !errors.Is(failures[0].Err, custom.ErrAliasedBorrow) {
		t.Errorf("expected ErrAliasedBorrow, got %v", failures[0].Err)
	}
	if failures[0].Stage != custom.StageAttribute {
		t.Errorf("expected attribute stage, got %s", failures[0].Stage)
	}
	if len(failures[0].Stack) == 0 {
		t.Error("expected a captured stack for the panic")
	}

	// Dispatch keeps working after containment.
	if err := r.dr.Connect(ref); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if trace[len(trace)-1] != "connected" {
		t.Errorf("expected connected after containment, got %q", trace[len(trace)-1])
	}
}

func TestTemplateCloneIndependence(t *testing.T) {
	r := newRig(t)
	kind := dom.MustKindName("tpl-card")
	var roots []dom.ShadowRoot
	custom.MustDefine(r.reg, kind, custom.Descriptor[badgeState]{
		Template: custom.TemplateMarkup(`<div class="frame"><span>hello</span></div>`),
		New: func(el custom.Element[badgeState]) (*badgeState, error) {
			root, err := el.AttachTemplate(dom.ShadowOpen)
			if err != nil {
				return nil, err
			}
			roots = append(roots, root)
			return &badgeState{}, nil
		},
	})

	a := r.dr.CreateElement(kind)
	b := r.dr.CreateElement(kind)
	if len(roots) != 2 {
		t.Fatalf("expected 2 shadow roots, got %d", len(roots))
	}

	if err := roots[0].SetInnerMarkup("<b>changed</b>"); err != nil {
		t.Fatalf("mutating first shadow failed: %v", err)
	}

	am, err := r.tree.Markup(a)
	if err != nil {
		t.Fatalf("markup failed: %v", err)
	}
	bm, err := r.tree.Markup(b)
	if err != nil {
		t.Fatalf("markup failed: %v", err)
	}
	if !strings.Contains(am, "changed") || strings.Contains(am, "hello") {
		t.Errorf("expected first instance mutated, got %s", am)
	}
	if !strings.Contains(bm, "hello") || strings.Contains(bm, "changed") {
		t.Errorf("expected second instance untouched, got %s", bm)
	}

	// The prototype is never handed out live: a later instance still gets
	// the pristine content.
	c := r.dr.CreateElement(kind)
	cm, err := r.tree.Markup(c)
	if err != nil {
		t.Fatalf("markup failed: %v", err)
	}
	if !strings.Contains(cm, "hello") {
		t.Errorf("expected pristine template for third instance, got %s", cm)
	}
}

func TestTemplateBuildRetries(t *testing.T) {
	r := newRig(t)
	kind := dom.MustKindName("flaky-card")
	builds := 0
	custom.MustDefine(r.reg, kind, custom.Descriptor[badgeState]{
		Template: func(h dom.Host) (dom.FragmentRef, error) {
			builds++
			if builds == 1 {
				return dom.FragmentRef{}, errors.New("markup fetch failed")
			}
			return h.CreateTemplate("<p>ok</p>")
		},
		New: func(el custom.Element[badgeState]) (*badgeState, error) {
			if _, err := el.AttachTemplate(dom.ShadowOpen); err != nil {
				return nil, err
			}
			return &badgeState{}, nil
		},
	})

	first := r.dr.CreateElement(kind)
	if _, ok := r.disp.InstancePhase(first); ok {
		t.Error("expected first construction to fail with the template")
	}

	second := r.dr.CreateElement(kind)
	if _, ok := r.disp.InstancePhase(second); !ok {
		t.Fatal("expected build retry to succeed")
	}
	if builds != 2 {
		t.Errorf("expected 2 build attempts, got %d", builds)
	}

	// Third construction reuses the cached prototype.
	r.dr.CreateElement(kind)
	if builds != 2 {
		t.Errorf("expected cached template, got %d builds", builds)
	}
}

func TestTemplateCycleContained(t *testing.T) {
	var failures []custom.CallbackFailure
	r := newRig(t, custom.WithFailureHandler(func(f custom.CallbackFailure) {
		failures = append(failures, f)
	}))

	kind := dom.MustKindName("loop-card")
	nested := false
	custom.MustDefine(r.reg, kind, custom.Descriptor[badgeState]{
		Template: func(h dom.Host) (dom.FragmentRef, error) {
			if !nested {
				nested = true
				// Constructing the same kind from inside its own template
				// build reenters the cache.
				r.dr.CreateElement(kind)
			}
			return h.CreateTemplate("<div></div>")
		},
		New: func(el custom.Element[badgeState]) (*badgeState, error) {
			if _, err := el.AttachTemplate(dom.ShadowOpen); err != nil {
				return nil, err
			}
			return &badgeState{}, nil
		},
	})

	ref := r.dr.CreateElement(kind)

	// The nested construction fails with the cycle error; the outer build
	// completes normally.
	if _, ok := r.disp.InstancePhase(ref); !ok {
		t.Fatal("expected outer construction to succeed")
	}
	if len(failures) != 1 {
		t.Fatalf("expected 1 contained failure, got %d", len(failures))
	}
	if !errors.Is(failures[0].Err, custom.ErrTemplateCycle) {
		t.Errorf("expected ErrTemplateCycle, got %v", failures[0].Err)
	}
	if n := r.disp.InstanceCount(); n != 1 {
		t.Errorf("expected 1 live instance, got %d", n)
	}
}

func TestUnknownInstanceNotificationsBenign(t *testing.T) {
	r := newRig(t)
	var trace []string
	defineTracing(t, r, &trace, msgAttr)

	bogus := dom.NodeRefFromID(4242)
	r.disp.HandleConnected(bogus)
	r.disp.HandleDisconnected(bogus)
	r.disp.HandleAttributeChanged(bogus, msgAttr, dom.NoValue(), dom.SomeValue("x"))
	r.disp.HandleAdopted(bogus, r.dr.Document(), false)
	r.disp.HandleDestroyed(bogus)

	if len(trace) != 0 {
		t.Errorf("expected no callbacks, got %q", trace)
	}
	if st := r.disp.Stats(); st.UnknownInstance != 5 {
		t.Errorf("expected 5 unknown-instance drops, got %d", st.UnknownInstance)
	}
}

func TestAdoptionMovesDocument(t *testing.T) {
	r := newRig(t)
	var got []custom.AdoptionContext
	var phases []custom.Phase
	custom.MustDefine(r.reg, badgeKind, custom.Descriptor[badgeState]{
		New: func(el custom.Element[badgeState]) (*badgeState, error) {
			return &badgeState{}, nil
		},
		Adopted: func(el custom.Element[badgeState], ctx custom.AdoptionContext) {
			got = append(got, ctx)
			phases = append(phases, el.Phase())
			if el.Document() != ctx.NewDocument {
				t.Errorf("expected element document %s during adoption, got %s", ctx.NewDocument, el.Document())
			}
		},
	})

	ref := r.dr.CreateElement(badgeKind)
	if err := r.dr.Connect(ref); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	doc2 := r.dr.NewDocument()
	if err := r.dr.Adopt(ref, doc2, true); err != nil {
		t.Fatalf("adopt failed: %v", err)
	}
	doc3 := r.dr.NewDocument()
	if err := r.dr.Adopt(ref, doc3, false); err != nil {
		t.Fatalf("adopt failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 adoptions, got %d", len(got))
	}
	if !got[0].OldDocument.IsZero() || got[0].NewDocument != doc2 || !got[0].Connected {
		t.Errorf("unexpected first adoption context: %+v", got[0])
	}
	if got[1].OldDocument != doc2 || got[1].NewDocument != doc3 || got[1].Connected {
		t.Errorf("unexpected second adoption context: %+v", got[1])
	}
	if phases[0] != custom.PhaseAdopting || phases[1] != custom.PhaseAdopting {
		t.Errorf("expected adopting phase during callbacks, got %v", phases)
	}

	phase, _ := r.disp.InstancePhase(ref)
	if phase != custom.PhaseDisconnected {
		t.Errorf("expected phase disconnected after detached adoption, got %s", phase)
	}
}

func TestDestroyFinalizes(t *testing.T) {
	r := newRig(t)
	var trace []string
	defineTracing(t, r, &trace)

	ref := r.dr.CreateElement(badgeKind)
	if err := r.dr.Connect(ref); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if err := r.dr.Destroy(ref); err != nil {
		t.Fatalf("destroy failed: %v", err)
	}

	// A connected instance is disconnected before the finalizer runs.
	wantTrace(t, trace, "new", "connected", "disconnected", "finalized")

	if n := r.disp.InstanceCount(); n != 0 {
		t.Errorf("expected empty instance table, got %d", n)
	}
	st := r.disp.Stats()
	if st.Destroyed != 1 {
		t.Errorf("expected 1 destruction, got %d", st.Destroyed)
	}

	// The handle is unknown from now on.
	r.disp.HandleConnected(ref)
	wantTrace(t, trace, "new", "connected", "disconnected", "finalized")
	if st := r.disp.Stats(); st.UnknownInstance != 1 {
		t.Errorf("expected unknown-instance drop after destruction, got %d", st.UnknownInstance)
	}
}

func TestDestroyDuringConstruction(t *testing.T) {
	r := newRig(t)
	finalized := 0
	custom.MustDefine(r.reg, badgeKind, custom.Descriptor[badgeState]{
		New: func(el custom.Element[badgeState]) (*badgeState, error) {
			// The host tears the node down while its constructor runs.
			if err := r.dr.Destroy(el.Ref()); err != nil {
				return nil, err
			}
			return &badgeState{}, nil
		},
		Finalizer: func(s *badgeState) {
			if s == nil {
				t.Error("finalizer received nil state")
			}
			finalized++
		},
	})

	ref := r.dr.CreateElement(badgeKind)

	if _, ok := r.disp.InstancePhase(ref); ok {
		t.Error("expected no instance after mid-construction destruction")
	}
	if finalized != 1 {
		t.Errorf("expected finalizer to run once with the state, got %d", finalized)
	}
	if n := r.disp.InstanceCount(); n != 0 {
		t.Errorf("expected empty instance table, got %d", n)
	}
}

func TestSweepReapsDeadHandles(t *testing.T) {
	r := newRig(t)
	var trace []string
	defineTracing(t, r, &trace)

	a := r.dr.CreateElement(badgeKind)
	b := r.dr.CreateElement(badgeKind)

	// The host drops the first node without a destruction notification.
	if err := r.tree.Destroy(a); err != nil {
		t.Fatalf("tree destroy failed: %v", err)
	}

	if n := r.disp.Sweep(r.tree.Alive); n != 1 {
		t.Errorf("expected 1 reaped instance, got %d", n)
	}
	if _, ok := r.disp.InstancePhase(a); ok {
		t.Error("expected swept instance gone")
	}
	if _, ok := r.disp.InstancePhase(b); !ok {
		t.Error("expected live instance kept")
	}
	wantTrace(t, trace, "new", "new", "finalized")

	if n := r.disp.Sweep(r.tree.Alive); n != 0 {
		t.Errorf("expected idempotent sweep, got %d", n)
	}
	if st := r.disp.Stats(); st.Swept != 1 {
		t.Errorf("expected 1 swept, got %d", st.Swept)
	}
}

func TestDispatchDepthLimit(t *testing.T) {
	var failures []custom.CallbackFailure
	r := newRig(t,
		custom.WithMaxDepth(4),
		custom.WithFailureHandler(func(f custom.CallbackFailure) {
			failures = append(failures, f)
		}),
	)

	runs := 0
	custom.MustDefine(r.reg, badgeKind, custom.Descriptor[badgeState]{
		ObservedAttributes: []dom.Name{msgAttr},
		New: func(el custom.Element[badgeState]) (*badgeState, error) {
			return &badgeState{}, nil
		},
		AttributeChanged: func(el custom.Element[badgeState], ch dom.AttributeChange) {
			runs++
			// Unconditional mutation recurses until the depth limit cuts in.
			_ = el.SetAttribute(msgAttr, ch.New.Or("")+"x")
		},
	})

	ref := r.dr.CreateElement(badgeKind)
	if err := r.dr.SetAttribute(ref, msgAttr, "x"); err != nil {
		t.Fatalf("set attribute failed: %v", err)
	}

	if runs != 4 {
		t.Errorf("expected 4 callback runs under limit 4, got %d", runs)
	}
	if len(failures) != 1 {
		t.Fatalf("expected 1 depth failure, got %d", len(failures))
	}
	if !strings.Contains(failures[0].Err.Error(), "depth") {
		t.Errorf("expected depth error, got %v", failures[0].Err)
	}

	// The storm is over; normal dispatch still works.
	if err := r.dr.SetAttribute(ref, colorAttr, "red"); err != nil {
		t.Fatalf("set attribute failed: %v", err)
	}
	if _, ok := r.disp.InstancePhase(ref); !ok {
		t.Error("expected instance to survive the depth cut")
	}
}

func TestMiddlewareObservesNotifications(t *testing.T) {
	var order []string
	var seenErrs []error
	tag := func(name string) custom.Middleware {
		return func(next custom.Handler) custom.Handler {
			return func(n custom.Notification) error {
				order = append(order, name+":"+n.Stage.String())
				err := next(n)
				if err != nil {
					seenErrs = append(seenErrs, err)
				}
				return err
			}
		}
	}

	r := newRig(t, custom.WithMiddleware(tag("a")))
	r.disp.Use(tag("b"))

	custom.MustDefine(r.reg, badgeKind, custom.Descriptor[badgeState]{
		New: func(el custom.Element[badgeState]) (*badgeState, error) {
			return &badgeState{}, nil
		},
		Connected: func(el custom.Element[badgeState]) {
			panic("connect exploded")
		},
	})

	ref := r.dr.CreateElement(badgeKind)
	if err := r.dr.Connect(ref); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if err := r.dr.Destroy(ref); err != nil {
		t.Fatalf("destroy failed: %v", err)
	}

	want := []string{
		"a:construct", "b:construct",
		"a:connect", "b:connect",
		"a:disconnect", "b:disconnect",
		"a:destroy", "b:destroy",
	}
	wantTrace(t, order, want...)

	// The contained connect panic is visible to middleware but never
	// propagates out of the dispatcher.
	if len(seenErrs) != 2 {
		t.Fatalf("expected both middlewares to observe the failure, got %d errors", len(seenErrs))
	}
	if !strings.Contains(seenErrs[0].Error(), "connect exploded") {
		t.Errorf("expected contained panic in observed error, got %v", seenErrs[0])
	}

	// Installation after the first dispatch is ignored.
	r.disp.Use(tag("late"))
	r.dr.CreateElement(badgeKind)
	for _, line := range order {
		if strings.HasPrefix(line, "late:") {
			t.Fatalf("expected late middleware to be ignored, saw %q", line)
		}
	}
}

func TestRecorderScenarioTrace(t *testing.T) {
	r := newRig(t)
	rec := &hosttest.Recorder{}
	if err := hosttest.DefineRecorder(r.reg, badgeKind, rec, msgAttr); err != nil {
		t.Fatalf("define failed: %v", err)
	}

	ref := r.dr.CreateElement(badgeKind)
	if err := r.dr.Connect(ref); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if err := r.dr.SetAttribute(ref, msgAttr, "hi"); err != nil {
		t.Fatalf("set attribute failed: %v", err)
	}
	if err := r.dr.Disconnect(ref); err != nil {
		t.Fatalf("disconnect failed: %v", err)
	}
	if err := r.dr.Destroy(ref); err != nil {
		t.Fatalf("destroy failed: %v", err)
	}

	wantTrace(t, rec.Events(),
		fmt.Sprintf("construct status-badge %s", ref),
		fmt.Sprintf("connect status-badge %s", ref),
		fmt.Sprintf(`attr status-badge %s message "" -> "hi"`, ref),
		fmt.Sprintf("disconnect status-badge %s", ref),
		"finalize changes=1",
	)
}
