// Package custom implements the custom element lifecycle bridge: typed
// element definitions on one side, an untyped host runtime driving lifecycle
// notifications on the other.
//
// Application code describes each element kind once with a Descriptor and
// registers it:
//
//	type badge struct {
//	    flashes int
//	}
//
//	err := custom.Define(reg, dom.MustKindName("status-badge"), custom.Descriptor[badge]{
//	    Template:           custom.TemplateMarkup(`<div id="message_container"></div>`),
//	    ObservedAttributes: []dom.Name{dom.MustName("message")},
//	    New: func(el custom.Element[badge]) (*badge, error) {
//	        if _, err := el.AttachTemplate(dom.ShadowOpen); err != nil {
//	            return nil, err
//	        }
//	        return &badge{}, nil
//	    },
//	    AttributeChanged: func(el custom.Element[badge], ch dom.AttributeChange) {
//	        el.With(func(b *badge) { b.flashes++ })
//	    },
//	})
//
// The host owns every element. It constructs them, moves them in and out of
// live trees, mutates their attributes, and eventually destroys them; the
// bridge hears about each of these through the Dispatcher's notification
// surface and routes them to the right instance in the right state.
//
// # Dispatch model
//
// All notifications arrive on one logical thread, and reentrancy is the
// normal case: a connected callback that sets an attribute re-enters the
// dispatcher synchronously, before SetAttribute returns. The dispatcher
// tracks dispatch depth but never blocks on it.
//
// Instance state is guarded by a per-instance dynamically checked exclusive
// borrow. Sequential nested borrows at any depth are legal; overlapping
// borrows of the same instance panic with an error satisfying
// errors.Is(err, ErrAliasedBorrow), which the dispatcher contains as a
// callback failure rather than letting it unwind the notification loop.
//
// # Failure containment
//
// A callback that panics (or a constructor that returns an error) poisons
// only its own instance. The dispatcher recovers, logs with a stack trace,
// counts the failure, and keeps dispatching.
package custom
