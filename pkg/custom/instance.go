package custom

import (
	"github.com/sill-dev/sill/pkg/dom"
)

// Phase is the lifecycle state of one element instance.
//
// The legal transitions are fixed: Constructing settles to Disconnected,
// Disconnected and Connected alternate, Adopting is transient during a
// document move, and Finalized is terminal.
type Phase uint8

const (
	// PhaseConstructing covers the constructor's extent. Instance state is
	// not yet available; observed attribute changes are queued and
	// delivered once construction settles.
	PhaseConstructing Phase = iota

	// PhaseDisconnected means the element exists but is not part of a live
	// tree.
	PhaseDisconnected

	// PhaseConnected means the element is attached to a live tree.
	PhaseConnected

	// PhaseAdopting covers the adopted callback's extent during a document
	// move.
	PhaseAdopting

	// PhaseFinalized is terminal: the instance has been torn down.
	PhaseFinalized
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseConstructing:
		return "constructing"
	case PhaseDisconnected:
		return "disconnected"
	case PhaseConnected:
		return "connected"
	case PhaseAdopting:
		return "adopting"
	case PhaseFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// instance is one live element: the pairing of a host identity with caller
// state. The dispatcher owns the table of these; all access happens on the
// single logical dispatch thread.
type instance struct {
	ref   dom.NodeRef
	entry *kindEntry
	phase Phase

	// doc is the owning document as last reported through adoption. Zero
	// until the first adoption notification.
	doc dom.DocumentRef

	// state is the caller's *T. Nil during construction and after
	// finalization.
	state any

	// borrowed marks an exclusive borrow in progress.
	borrowed bool

	// pending holds observed attribute changes that arrived while the
	// instance was still constructing.
	pending []dom.AttributeChange
}
