package hosttest

import (
	"fmt"

	"github.com/sill-dev/sill/pkg/custom"
	"github.com/sill-dev/sill/pkg/dom"
)

// Recorder collects lifecycle events as formatted lines. Scenario replay and
// package tests compare the collected trace against expectations.
type Recorder struct {
	events []string
}

// Record appends one formatted event.
func (r *Recorder) Record(format string, args ...any) {
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

// Events returns the recorded lines in order.
func (r *Recorder) Events() []string {
	return r.events
}

// Reset clears the trace.
func (r *Recorder) Reset() {
	r.events = nil
}

// recorderState is the instance state of kinds defined by DefineRecorder.
type recorderState struct {
	changes int
}

// DefineRecorder registers a kind whose callbacks write a one-line trace per
// lifecycle event. The element attaches an open shadow root with an empty
// template so the construction path exercises the template cache.
func DefineRecorder(reg *custom.Registry, kind dom.Name, rec *Recorder, observed ...dom.Name) error {
	return custom.Define(reg, kind, custom.Descriptor[recorderState]{
		Template:           custom.TemplateMarkup("<div></div>"),
		ObservedAttributes: observed,
		New: func(el custom.Element[recorderState]) (*recorderState, error) {
			if _, err := el.AttachTemplate(dom.ShadowOpen); err != nil {
				return nil, err
			}
			rec.Record("construct %s %s", el.Kind(), el.Ref())
			return &recorderState{}, nil
		},
		Connected: func(el custom.Element[recorderState]) {
			rec.Record("connect %s %s", el.Kind(), el.Ref())
		},
		Disconnected: func(el custom.Element[recorderState]) {
			rec.Record("disconnect %s %s", el.Kind(), el.Ref())
		},
		Adopted: func(el custom.Element[recorderState], ctx custom.AdoptionContext) {
			rec.Record("adopt %s %s -> %s connected=%t", el.Kind(), el.Ref(), ctx.NewDocument, ctx.Connected)
		},
		AttributeChanged: func(el custom.Element[recorderState], change dom.AttributeChange) {
			el.With(func(s *recorderState) { s.changes++ })
			rec.Record("attr %s %s %s %q -> %q", el.Kind(), el.Ref(), change.Name,
				change.Old.Or(""), change.New.Or(""))
		},
		Finalizer: func(s *recorderState) {
			rec.Record("finalize changes=%d", s.changes)
		},
	})
}
