package custom

import (
	"github.com/sill-dev/sill/pkg/dom"
)

// TemplateBuilder produces the template prototype fragment for an element
// kind. It runs at most once per kind per registry, lazily, on the dispatch
// thread of the first construction that needs it.
type TemplateBuilder func(h dom.Host) (dom.FragmentRef, error)

// TemplateMarkup returns a TemplateBuilder that parses literal markup.
func TemplateMarkup(markup string) TemplateBuilder {
	return func(h dom.Host) (dom.FragmentRef, error) {
		return h.CreateTemplate(markup)
	}
}

// AdoptionContext describes a document move delivered to the Adopted
// callback.
type AdoptionContext struct {
	// OldDocument is the document the element is leaving. Zero when the
	// bridge never learned the old owner.
	OldDocument dom.DocumentRef

	// NewDocument is the document the element now belongs to.
	NewDocument dom.DocumentRef

	// Connected reports whether the element is attached to the new
	// document's live tree after the move.
	Connected bool
}

// Descriptor describes one custom element kind with instance state T.
//
// New is the only required callback. The remaining callbacks default to
// no-ops when nil, so a kind that only cares about connection events declares
// exactly that.
type Descriptor[T any] struct {
	// New constructs the instance state for a freshly created element. It
	// runs while the element is still host-side bare: this is where the
	// kind attaches its shadow root and instantiates its template. The
	// element's state is not yet available through el.With; New returns it.
	//
	// A nil state with a nil error is invalid and is treated as a
	// construction failure.
	New func(el Element[T]) (*T, error)

	// Connected fires after the host inserts the element into a live tree.
	Connected func(el Element[T])

	// Disconnected fires after the host removes the element from a live
	// tree.
	Disconnected func(el Element[T])

	// Adopted fires when the host moves the element between documents.
	Adopted func(el Element[T], ctx AdoptionContext)

	// AttributeChanged fires for mutations of observed attributes only.
	// Changes to attributes outside ObservedAttributes are filtered before
	// any callback machinery runs.
	AttributeChanged func(el Element[T], change dom.AttributeChange)

	// Finalizer runs exactly once when the instance is torn down, with
	// ownership of the state transferred out of the table. The host-side
	// element may already be gone; the finalizer must not call back into
	// the host.
	Finalizer func(state *T)

	// ObservedAttributes is the allow-list for AttributeChanged. Empty
	// means no attribute change is ever delivered.
	ObservedAttributes []dom.Name

	// Template supplies the kind's template prototype. Optional; kinds
	// without one fail InstantiateTemplate with ErrNoTemplate.
	Template TemplateBuilder
}
