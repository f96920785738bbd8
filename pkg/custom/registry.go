package custom

import (
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	sillerrors "github.com/sill-dev/sill/internal/errors"
	"github.com/sill-dev/sill/pkg/dom"
)

// Sentinel errors for the registration surface. The coded errors returned by
// Define wrap these, so errors.Is works at the API boundary.
var (
	// ErrDuplicateKind reports a second definition of an already registered
	// kind.
	ErrDuplicateKind = stderrors.New("custom: element kind already registered")

	// ErrRegistryActive reports a definition attempted after the dispatcher
	// began handling notifications.
	ErrRegistryActive = stderrors.New("custom: registry is already serving dispatch")
)

// Registry holds the element kind definitions for one dispatcher.
//
// Definitions happen up front, before the host starts driving lifecycle
// traffic; after the first notification the registry seals and further
// definitions fail. Lookup on the dispatch path is lock-free.
type Registry struct {
	defs   atomic.Pointer[kindSet]
	active atomic.Bool
	mu     sync.Mutex
}

type kindSet struct {
	byKind map[string]*kindEntry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	r.defs.Store(&kindSet{byKind: map[string]*kindEntry{}})
	return r
}

// kindEntry is the type-erased form of a Descriptor. Define builds the
// closures once per kind; the dispatcher never sees the state type.
type kindEntry struct {
	kind     dom.Name
	observed map[string]struct{}

	construct        func(h dom.Host, inst *instance) (any, error)
	connected        func(h dom.Host, inst *instance)
	disconnected     func(h dom.Host, inst *instance)
	adopted          func(h dom.Host, inst *instance, ctx AdoptionContext)
	attributeChanged func(h dom.Host, inst *instance, change dom.AttributeChange)
	finalize         func(state any)

	template TemplateBuilder

	// Template cache. tplMu guards the phase transitions; the builder
	// itself runs unlocked so that reentrant construction of OTHER kinds
	// stays legal while this kind is building.
	tplMu    sync.Mutex
	tplPhase templatePhase
	tplProto dom.FragmentRef
}

func (e *kindEntry) observes(name dom.Name) bool {
	if e.observed == nil {
		return false
	}
	_, ok := e.observed[name.String()]
	return ok
}

// Define registers one element kind. Each kind may be defined exactly once
// per registry; a duplicate is a hard error, never a silent overwrite.
func Define[T any](r *Registry, kind dom.Name, d Descriptor[T]) error {
	if _, err := dom.ParseKindName(kind.String()); err != nil {
		return sillerrors.New("E002").
			WithDetail(fmt.Sprintf("kind %q", kind.String())).
			Wrap(err)
	}
	if d.New == nil {
		return sillerrors.Newf(sillerrors.CategoryRegistry,
			"descriptor for kind %q has no constructor", kind.String())
	}

	entry := &kindEntry{
		kind:     kind,
		template: d.Template,
	}
	if len(d.ObservedAttributes) > 0 {
		entry.observed = make(map[string]struct{}, len(d.ObservedAttributes))
		for _, n := range d.ObservedAttributes {
			if !n.IsZero() {
				entry.observed[n.String()] = struct{}{}
			}
		}
	}

	entry.construct = func(h dom.Host, inst *instance) (any, error) {
		state, err := d.New(elementOf[T](h, inst))
		if err != nil {
			return nil, err
		}
		if state == nil {
			return nil, stderrors.New("constructor returned nil state")
		}
		return state, nil
	}
	if d.Connected != nil {
		fn := d.Connected
		entry.connected = func(h dom.Host, inst *instance) {
			fn(elementOf[T](h, inst))
		}
	}
	if d.Disconnected != nil {
		fn := d.Disconnected
		entry.disconnected = func(h dom.Host, inst *instance) {
			fn(elementOf[T](h, inst))
		}
	}
	if d.Adopted != nil {
		fn := d.Adopted
		entry.adopted = func(h dom.Host, inst *instance, ctx AdoptionContext) {
			fn(elementOf[T](h, inst), ctx)
		}
	}
	if d.AttributeChanged != nil {
		fn := d.AttributeChanged
		entry.attributeChanged = func(h dom.Host, inst *instance, change dom.AttributeChange) {
			fn(elementOf[T](h, inst), change)
		}
	}
	if d.Finalizer != nil {
		fn := d.Finalizer
		entry.finalize = func(state any) {
			if s, ok := state.(*T); ok {
				fn(s)
			}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active.Load() {
		return sillerrors.New("E003").
			WithDetail(fmt.Sprintf("kind %q", kind.String())).
			Wrap(ErrRegistryActive)
	}
	cur := r.defs.Load()
	if _, exists := cur.byKind[kind.String()]; exists {
		return sillerrors.New("E001").
			WithDetail(fmt.Sprintf("kind %q", kind.String())).
			WithSuggestion("Give one of the two definitions a different kind name").
			Wrap(ErrDuplicateKind)
	}

	next := &kindSet{byKind: make(map[string]*kindEntry, len(cur.byKind)+1)}
	for k, v := range cur.byKind {
		next.byKind[k] = v
	}
	next.byKind[kind.String()] = entry
	r.defs.Store(next)
	return nil
}

// MustDefine is Define for program-startup registration; it panics on error.
func MustDefine[T any](r *Registry, kind dom.Name, d Descriptor[T]) {
	if err := Define(r, kind, d); err != nil {
		panic(err)
	}
}

func elementOf[T any](h dom.Host, inst *instance) Element[T] {
	return Element[T]{ElementHandle: dom.BindElement(h, inst.ref), inst: inst}
}

func (r *Registry) lookup(kind string) (*kindEntry, bool) {
	e, ok := r.defs.Load().byKind[kind]
	return e, ok
}

// Kinds returns the registered kind names, sorted.
func (r *Registry) Kinds() []dom.Name {
	set := r.defs.Load()
	out := make([]dom.Name, 0, len(set.byKind))
	for _, e := range set.byKind {
		out = append(out, e.kind)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Observed returns the observed attribute names for a kind, sorted, or nil
// for an unknown kind.
func (r *Registry) Observed(kind dom.Name) []dom.Name {
	e, ok := r.lookup(kind.String())
	if !ok {
		return nil
	}
	out := make([]dom.Name, 0, len(e.observed))
	for name := range e.observed {
		out = append(out, dom.TrustedName(name))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Active reports whether the registry has sealed against new definitions.
func (r *Registry) Active() bool {
	return r.active.Load()
}

func (r *Registry) seal() {
	if !r.active.Load() {
		r.active.Store(true)
	}
}
