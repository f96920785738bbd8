package dom

// The capability interfaces form a closed hierarchy: Node, Element and
// ShadowHost are implemented only by the handle types in this package.
// Sealing keeps the operation set per capability fixed: a value either has
// the whole capability or none of it, and callers never meet a partial
// implementation from outside the library.

// Node is the base capability: anything addressable in the host tree.
type Node interface {
	sealedNode()

	// Ref returns the underlying host handle.
	Ref() NodeRef

	// Host returns the host this node belongs to.
	Host() Host
}

// Element is the capability of attribute-bearing tree elements.
type Element interface {
	Node

	// Attribute reads an attribute from the host.
	Attribute(name Name) (AttributeValue, error)

	// SetAttribute writes an attribute through the host. If the element is
	// a registered custom element and name is observed, the host re-enters
	// the lifecycle dispatcher synchronously before this call returns.
	SetAttribute(name Name, value string) error

	// RemoveAttribute deletes an attribute through the host.
	RemoveAttribute(name Name) error

	// SetInnerMarkup replaces the element's subtree.
	SetInnerMarkup(markup string) error

	// QuerySelector finds the first matching descendant.
	QuerySelector(sel Selector) (NodeRef, error)

	// BoundingClientRect returns the element's current geometry.
	BoundingClientRect() (Rect, error)

	// Class returns the element's class-list view.
	Class() Class
}

// ShadowHost is the capability of elements that may carry a shadow root.
type ShadowHost interface {
	Element

	// AttachShadow attaches the element's shadow root. Once per element.
	AttachShadow(opts ShadowRootOptions) (ShadowRoot, error)
}

// ElementHandle is the generic adapter behind every concrete element kind.
// It implements the full capability set once, so a new kind is a type that
// embeds ElementHandle rather than a page of hand-written delegation.
type ElementHandle struct {
	host Host
	ref  NodeRef
}

// BindElement pairs a host with a node handle.
func BindElement(h Host, ref NodeRef) ElementHandle {
	return ElementHandle{host: h, ref: ref}
}

func (e ElementHandle) sealedNode() {}

// Ref returns the underlying host handle.
func (e ElementHandle) Ref() NodeRef {
	return e.ref
}

// Host returns the host this element belongs to.
func (e ElementHandle) Host() Host {
	return e.host
}

// Attribute reads an attribute from the host.
func (e ElementHandle) Attribute(name Name) (AttributeValue, error) {
	return e.host.Attribute(e.ref, name)
}

// SetAttribute writes an attribute through the host.
func (e ElementHandle) SetAttribute(name Name, value string) error {
	return e.host.SetAttribute(e.ref, name, value)
}

// RemoveAttribute deletes an attribute through the host.
func (e ElementHandle) RemoveAttribute(name Name) error {
	return e.host.RemoveAttribute(e.ref, name)
}

// SetInnerMarkup replaces the element's subtree.
func (e ElementHandle) SetInnerMarkup(markup string) error {
	return e.host.SetInnerMarkup(e.ref, markup)
}

// QuerySelector finds the first matching descendant.
func (e ElementHandle) QuerySelector(sel Selector) (NodeRef, error) {
	return e.host.QuerySelector(e.ref, sel)
}

// BoundingClientRect returns the element's current geometry.
func (e ElementHandle) BoundingClientRect() (Rect, error) {
	return e.host.BoundingClientRect(e.ref)
}

// Class returns the element's class-list view.
func (e ElementHandle) Class() Class {
	return Class{host: e.host, ref: e.ref}
}

// AttachShadow attaches the element's shadow root. Once per element.
func (e ElementHandle) AttachShadow(opts ShadowRootOptions) (ShadowRoot, error) {
	root, err := e.host.AttachShadow(e.ref, opts)
	if err != nil {
		return ShadowRoot{}, err
	}
	return ShadowRoot{host: e.host, ref: root}, nil
}

var (
	_ Node       = ElementHandle{}
	_ Element    = ElementHandle{}
	_ ShadowHost = ElementHandle{}
)

// ShadowRoot is the handle to an element's shadow root. It is a query and
// append target, not an element: it carries no attributes of its own.
type ShadowRoot struct {
	host Host
	ref  NodeRef
}

func (s ShadowRoot) sealedNode() {}

// Ref returns the underlying host handle.
func (s ShadowRoot) Ref() NodeRef {
	return s.ref
}

// Host returns the host this root belongs to.
func (s ShadowRoot) Host() Host {
	return s.host
}

// IsZero reports whether s is the invalid zero handle.
func (s ShadowRoot) IsZero() bool {
	return s.ref.IsZero()
}

// AppendFragment moves a fragment's children into the shadow tree.
func (s ShadowRoot) AppendFragment(f FragmentRef) error {
	return s.host.AppendFragment(s.ref, f)
}

// QuerySelector finds the first matching node in the shadow tree.
func (s ShadowRoot) QuerySelector(sel Selector) (NodeRef, error) {
	return s.host.QuerySelector(s.ref, sel)
}

// SetInnerMarkup replaces the shadow tree with parsed markup.
func (s ShadowRoot) SetInnerMarkup(markup string) error {
	return s.host.SetInnerMarkup(s.ref, markup)
}

var _ Node = ShadowRoot{}
