// Package dom defines the boundary between the bridge and the host runtime
// that owns the document tree.
//
// The bridge never manipulates tree structure itself. It holds opaque handles
// (NodeRef, FragmentRef) to host-owned objects and calls into the host through
// the Host interface for the primitives it needs: fragment cloning, shadow root
// attachment, attribute access, selector queries. The host, in turn, drives the
// bridge through lifecycle notifications handled by package custom.
//
// # Handles
//
// NodeRef and FragmentRef are identity handles, not values. Two NodeRefs are
// the same element iff their IDs are equal; the handle says nothing about the
// element's content and may outlive the element itself (the host may destroy
// an element while a handle to it is still held; operations on such handles
// return ErrNodeGone).
//
// # Names
//
// Name is a validated attribute or element-kind name. Custom element kinds
// must contain a hyphen; attribute names follow the usual restricted character
// set. Use ParseName for runtime input and MustName for literals:
//
//	var messageAttr = dom.MustName("message")
//
// # Capabilities
//
// The capability interfaces (Node, Element, ShadowHost) form a closed set:
// they are sealed and implemented only by the handle types this package
// provides. ElementHandle is the generic adapter that carries all capability
// implementations for every concrete element kind, so new kinds never
// hand-write delegation.
package dom
