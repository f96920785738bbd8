package custom

import (
	stderrors "errors"

	sillerrors "github.com/sill-dev/sill/internal/errors"
)

// Borrow guard errors. Both surface through panics from Element.With; the
// dispatcher contains them as callback failures.
var (
	// ErrAliasedBorrow reports a borrow attempted while another borrow of
	// the same instance is still live on the call stack. Nested borrows
	// are legal only sequentially, after the outer borrow has returned.
	ErrAliasedBorrow = stderrors.New("custom: instance state already borrowed")

	// ErrNoState reports a borrow of an instance whose state does not
	// exist: during construction or after finalization.
	ErrNoState = stderrors.New("custom: instance state not available")
)

// withState runs fn with exclusive access to the instance state.
//
// The exclusivity check is dynamic, not lock-based: everything happens on one
// logical thread, so an overlapping borrow can only mean the caller re-entered
// the same instance from inside its own borrow window. That is an aliasing
// bug, and it fails loudly instead of handing out a second reference.
func (in *instance) withState(fn func(state any)) error {
	if in.borrowed {
		return sillerrors.New("E040").
			WithDetail("element " + in.ref.String() + " (" + in.entry.kind.String() + ")").
			Wrap(ErrAliasedBorrow)
	}
	if in.state == nil {
		return sillerrors.
			Newf(sillerrors.CategoryBorrow, "element %s (%s) in phase %s",
				in.ref.String(), in.entry.kind.String(), in.phase.String()).
			Wrap(ErrNoState)
	}
	in.borrowed = true
	defer func() { in.borrowed = false }()
	fn(in.state)
	return nil
}
