package custom

import (
	"github.com/sill-dev/sill/pkg/dom"
)

// Element is the typed view of one live custom element, handed to lifecycle
// callbacks. It carries the full host-side capability surface through the
// embedded handle plus guarded access to the instance state.
//
// Element values are cheap and transient; callbacks must not retain them
// past their own extent.
type Element[T any] struct {
	dom.ElementHandle
	inst *instance
}

// Kind returns the element's registered kind name.
func (e Element[T]) Kind() dom.Name {
	return e.inst.entry.kind
}

// Phase returns the instance's current lifecycle phase.
func (e Element[T]) Phase() Phase {
	return e.inst.phase
}

// Document returns the owning document as last reported by the host. Zero
// until the element has been through an adoption.
func (e Element[T]) Document() dom.DocumentRef {
	return e.inst.doc
}

// With runs fn with exclusive access to the instance state.
//
// Sequential nested borrows are legal: a callback may set an attribute, have
// the host re-enter the dispatcher, and the nested callback borrows again
// once this borrow has returned. Overlapping borrows of the same instance
// panic with an error satisfying errors.Is(err, ErrAliasedBorrow), which the
// dispatcher contains as a callback failure. Mutate host attributes outside
// the borrow window, not inside it.
func (e Element[T]) With(fn func(*T)) {
	if err := e.inst.withState(func(state any) { fn(state.(*T)) }); err != nil {
		panic(err)
	}
}

// TryWith is With returning the borrow error instead of panicking.
func (e Element[T]) TryWith(fn func(*T)) error {
	return e.inst.withState(func(state any) { fn(state.(*T)) })
}

// WithV borrows like Element.With and returns fn's result.
func WithV[T, V any](e Element[T], fn func(*T) V) V {
	var out V
	e.With(func(state *T) { out = fn(state) })
	return out
}

// InstantiateTemplate returns a fresh deep clone of the kind's template.
// The first call per kind builds the prototype; every call returns an
// independent copy that shares no mutable state with the prototype or with
// other clones.
func (e Element[T]) InstantiateTemplate() (dom.FragmentRef, error) {
	return e.inst.entry.instantiateTemplate(e.Host())
}

// AttachTemplate attaches a shadow root and fills it with a fresh template
// clone. This is the usual constructor opening move:
//
//	New: func(el custom.Element[badge]) (*badge, error) {
//	    root, err := el.AttachTemplate(dom.ShadowOpen)
//	    ...
//	}
func (e Element[T]) AttachTemplate(mode dom.ShadowMode) (dom.ShadowRoot, error) {
	root, err := e.AttachShadow(dom.ShadowRootOptions{Mode: mode})
	if err != nil {
		return dom.ShadowRoot{}, err
	}
	frag, err := e.InstantiateTemplate()
	if err != nil {
		return dom.ShadowRoot{}, err
	}
	if err := root.AppendFragment(frag); err != nil {
		return dom.ShadowRoot{}, err
	}
	return root, nil
}
