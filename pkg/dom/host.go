package dom

import "errors"

// Host errors shared by all host implementations.
var (
	// ErrNodeGone reports an operation on a handle whose node the host has
	// already destroyed.
	ErrNodeGone = errors.New("dom: node no longer exists")

	// ErrFragmentGone reports an operation on a released fragment handle.
	ErrFragmentGone = errors.New("dom: fragment no longer exists")

	// ErrShadowAlreadyAttached reports a second AttachShadow on the same
	// element. Shadow attachment is once per element.
	ErrShadowAlreadyAttached = errors.New("dom: shadow root already attached")

	// ErrNoMatch reports a QuerySelector that matched nothing.
	ErrNoMatch = errors.New("dom: selector matched no element")

	// ErrHostClosed reports an operation against a host whose transport or
	// backing engine has shut down.
	ErrHostClosed = errors.New("dom: host closed")
)

// ShadowMode selects the encapsulation mode of a shadow root.
type ShadowMode uint8

const (
	// ShadowOpen exposes the shadow root through the host's usual
	// introspection surface.
	ShadowOpen ShadowMode = iota

	// ShadowClosed hides the shadow root from outside queries.
	ShadowClosed
)

// String returns the wire name of the mode.
func (m ShadowMode) String() string {
	if m == ShadowClosed {
		return "closed"
	}
	return "open"
}

// ShadowRootOptions configures AttachShadow. The zero value requests an open
// shadow root, mirroring the host's defaults.
type ShadowRootOptions struct {
	Mode ShadowMode
}

// Rect is the result of a geometry query. Coordinates are in the host's
// viewport space.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// Host is the set of outbound primitives the bridge calls on the document
// engine. Implementations must be safe for use from the single logical
// dispatch thread, including reentrant calls made from inside lifecycle
// callbacks; they are not required to be safe for concurrent use from
// multiple goroutines.
//
// The internals behind these operations are the host's business: the bridge
// relies only on the stated contracts.
type Host interface {
	// CreateTemplate parses markup into a new host-owned fragment and
	// returns its handle. The fragment is inert: it is not part of any live
	// tree and never will be; consumers clone it instead.
	CreateTemplate(markup string) (FragmentRef, error)

	// CloneFragment returns a deep structural copy of the fragment. The
	// clone shares no mutable state with the original.
	CloneFragment(f FragmentRef) (FragmentRef, error)

	// AttachShadow creates a shadow root under el and returns the root as a
	// node handle. At most one shadow root may ever be attached to an
	// element; a second call returns ErrShadowAlreadyAttached.
	AttachShadow(el NodeRef, opts ShadowRootOptions) (NodeRef, error)

	// AppendFragment moves the fragment's children under parent, leaving
	// the fragment empty. The fragment handle is released afterwards.
	AppendFragment(parent NodeRef, f FragmentRef) error

	// Attribute reads the current value of an attribute.
	Attribute(el NodeRef, name Name) (AttributeValue, error)

	// SetAttribute writes an attribute. The host reports the resulting
	// mutation back through the usual attribute-changed notification path,
	// including when the write happens from inside a lifecycle callback.
	SetAttribute(el NodeRef, name Name, value string) error

	// RemoveAttribute deletes an attribute if present.
	RemoveAttribute(el NodeRef, name Name) error

	// SetInnerMarkup replaces el's subtree with parsed markup.
	SetInnerMarkup(el NodeRef, markup string) error

	// QuerySelector returns the first descendant of root matching sel, or
	// ErrNoMatch.
	QuerySelector(root NodeRef, sel Selector) (NodeRef, error)

	// BoundingClientRect returns el's current geometry.
	BoundingClientRect(el NodeRef) (Rect, error)
}
