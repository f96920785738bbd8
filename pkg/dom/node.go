package dom

import "fmt"

// NodeRef is an opaque handle to a host-owned tree node.
//
// The bridge never owns the node behind a NodeRef. The host assigns the
// identity when it creates the node and may invalidate it at any time after a
// destruction notification; a stale handle is not an error to hold, only to
// use. Equality is by identity: two NodeRefs refer to the same node iff their
// IDs are equal.
type NodeRef struct {
	id uint64
}

// NodeRefFromID wraps a host-assigned identity. Host implementations use this
// when minting handles; application code normally receives handles rather
// than constructing them.
func NodeRefFromID(id uint64) NodeRef {
	return NodeRef{id: id}
}

// ID returns the host-assigned identity.
func (n NodeRef) ID() uint64 {
	return n.id
}

// IsZero reports whether n is the invalid zero handle.
func (n NodeRef) IsZero() bool {
	return n.id == 0
}

// String returns a debug representation.
func (n NodeRef) String() string {
	return fmt.Sprintf("node#%d", n.id)
}

// FragmentRef is an opaque handle to a host-owned document fragment.
//
// Fragments hold subtrees that are not part of any live document: template
// prototypes and their clones. Like NodeRef, identity is host-assigned.
type FragmentRef struct {
	id uint64
}

// FragmentRefFromID wraps a host-assigned fragment identity.
func FragmentRefFromID(id uint64) FragmentRef {
	return FragmentRef{id: id}
}

// ID returns the host-assigned identity.
func (f FragmentRef) ID() uint64 {
	return f.id
}

// IsZero reports whether f is the invalid zero handle.
func (f FragmentRef) IsZero() bool {
	return f.id == 0
}

// String returns a debug representation.
func (f FragmentRef) String() string {
	return fmt.Sprintf("fragment#%d", f.id)
}

// DocumentRef identifies an owning document context. Elements move between
// documents during adoption; the bridge only ever compares these handles.
type DocumentRef struct {
	id uint64
}

// DocumentRefFromID wraps a host-assigned document identity.
func DocumentRefFromID(id uint64) DocumentRef {
	return DocumentRef{id: id}
}

// ID returns the host-assigned identity.
func (d DocumentRef) ID() uint64 {
	return d.id
}

// IsZero reports whether d is the invalid zero handle.
func (d DocumentRef) IsZero() bool {
	return d.id == 0
}

// String returns a debug representation.
func (d DocumentRef) String() string {
	return fmt.Sprintf("document#%d", d.id)
}
