// Package sill is the public API of the sill lifecycle bridge.
//
// This is the recommended import for applications that define custom
// element kinds:
//
//	import "github.com/sill-dev/sill"
//
// Usage:
//
//	type badge struct {
//	    count int
//	}
//
//	reg := sill.NewRegistry()
//	sill.MustDefine(reg, sill.MustName("x-badge"), sill.Descriptor[badge]{
//	    New: func(el sill.Element[badge]) (*badge, error) {
//	        return &badge{}, nil
//	    },
//	    AttributeChanged: func(el sill.Element[badge], change sill.AttributeChange) {
//	        el.With(func(b *badge) { b.count++ })
//	    },
//	    ObservedAttributes: []sill.Name{sill.MustName("count")},
//	})
//
// A registry by itself does nothing; a host drives it. Connect the registry
// to an in-memory host with pkg/hosttest, or to a remote engine over a
// websocket with pkg/remote.
package sill

import (
	"github.com/sill-dev/sill/pkg/custom"
	"github.com/sill-dev/sill/pkg/dom"
)

// Version is the sill release version.
const Version = "0.4.0"

// =============================================================================
// Kind registration (re-export from pkg/custom)
// =============================================================================

// Registry holds custom element kind definitions. It seals on first
// dispatcher attach; all kinds must be defined up front.
type Registry = custom.Registry

// Descriptor declares one custom element kind.
type Descriptor[T any] = custom.Descriptor[T]

// Element is the typed element view handed to lifecycle callbacks.
type Element[T any] = custom.Element[T]

// AdoptionContext describes a document move for the adopted callback.
type AdoptionContext = custom.AdoptionContext

// TemplateBuilder produces a kind's template prototype on the host.
type TemplateBuilder = custom.TemplateBuilder

// NewRegistry creates an empty kind registry.
var NewRegistry = custom.NewRegistry

// TemplateMarkup builds a template from a markup literal.
var TemplateMarkup = custom.TemplateMarkup

// Define registers a kind with the registry.
func Define[T any](r *Registry, kind Name, d Descriptor[T]) error {
	return custom.Define(r, kind, d)
}

// MustDefine is Define panicking on error, for program-invariant kinds.
func MustDefine[T any](r *Registry, kind Name, d Descriptor[T]) {
	custom.MustDefine(r, kind, d)
}

// WithV borrows the element's state and returns fn's result.
func WithV[T, V any](e Element[T], fn func(*T) V) V {
	return custom.WithV(e, fn)
}

// =============================================================================
// Dispatch (re-export from pkg/custom)
// =============================================================================

// Dispatcher routes host notifications to kind callbacks.
type Dispatcher = custom.Dispatcher

// Option configures a dispatcher.
type Option = custom.Option

// Stats are the dispatcher's lifetime counters.
type Stats = custom.Stats

// Notification describes one dispatch for middleware.
type Notification = custom.Notification

// Handler is the middleware-visible dispatch function.
type Handler = custom.Handler

// Middleware wraps dispatch.
type Middleware = custom.Middleware

// CallbackFailure is a contained callback error or panic.
type CallbackFailure = custom.CallbackFailure

// Phase is an instance's lifecycle phase.
type Phase = custom.Phase

// NewDispatcher creates a dispatcher bound to a host and registry.
var NewDispatcher = custom.NewDispatcher

// Dispatcher options.
var (
	WithLogger         = custom.WithLogger
	WithFailureHandler = custom.WithFailureHandler
	WithMiddleware     = custom.WithMiddleware
	WithMaxDepth       = custom.WithMaxDepth
)

// =============================================================================
// Host boundary types (re-export from pkg/dom)
// =============================================================================

// Name is a validated element or attribute name.
type Name = dom.Name

// AttributeValue is a presence-aware attribute value.
type AttributeValue = dom.AttributeValue

// AttributeChange describes one attribute mutation.
type AttributeChange = dom.AttributeChange

// NodeRef is an opaque host element handle.
type NodeRef = dom.NodeRef

// DocumentRef is an opaque host document handle.
type DocumentRef = dom.DocumentRef

// FragmentRef is an opaque host fragment handle.
type FragmentRef = dom.FragmentRef

// Host is the outbound operation surface the bridge calls on.
type Host = dom.Host

// ShadowMode selects open or closed shadow root attachment.
type ShadowMode = dom.ShadowMode

// Shadow root modes.
const (
	ShadowOpen   = dom.ShadowOpen
	ShadowClosed = dom.ShadowClosed
)

// Name constructors.
var (
	ParseName     = dom.ParseName
	ParseKindName = dom.ParseKindName
	MustName      = dom.MustName
)

// Attribute value constructors.
var (
	SomeValue = dom.SomeValue
	NoValue   = dom.NoValue
)
