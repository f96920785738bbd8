package custom

import (
	stderrors "errors"
	"fmt"

	sillerrors "github.com/sill-dev/sill/internal/errors"
	"github.com/sill-dev/sill/pkg/dom"
)

// Template cache errors.
var (
	// ErrNoTemplate reports template instantiation for a kind whose
	// descriptor declares no template.
	ErrNoTemplate = stderrors.New("custom: element kind has no template")

	// ErrTemplateCycle reports a template builder that re-entered template
	// initialization for its own kind.
	ErrTemplateCycle = stderrors.New("custom: reentrant template initialization")
)

type templatePhase uint8

const (
	templateUnbuilt templatePhase = iota
	templateBuilding
	templateReady
)

// instantiateTemplate returns a fresh deep clone of the kind's template
// prototype, building the prototype first if this is the kind's first
// instantiation. The prototype itself never leaves the cache and is never
// attached to a live tree.
func (e *kindEntry) instantiateTemplate(h dom.Host) (dom.FragmentRef, error) {
	proto, err := e.ensureTemplate(h)
	if err != nil {
		return dom.FragmentRef{}, err
	}
	return h.CloneFragment(proto)
}

// ensureTemplate builds the prototype exactly once. A failed build leaves the
// cache unbuilt so the next construction retries. Re-entering while this
// kind's builder is on the stack fails fast instead of deadlocking: builders
// may construct elements of other kinds, never of their own.
func (e *kindEntry) ensureTemplate(h dom.Host) (dom.FragmentRef, error) {
	if e.template == nil {
		return dom.FragmentRef{}, sillerrors.
			Newf(sillerrors.CategoryTemplate, "kind %q has no template", e.kind.String()).
			Wrap(ErrNoTemplate)
	}

	e.tplMu.Lock()
	switch e.tplPhase {
	case templateReady:
		proto := e.tplProto
		e.tplMu.Unlock()
		return proto, nil
	case templateBuilding:
		e.tplMu.Unlock()
		return dom.FragmentRef{}, sillerrors.New("E051").
			WithDetail(fmt.Sprintf("kind %q", e.kind.String())).
			Wrap(ErrTemplateCycle)
	}
	e.tplPhase = templateBuilding
	e.tplMu.Unlock()

	proto, err := e.template(h)

	e.tplMu.Lock()
	defer e.tplMu.Unlock()
	if err != nil {
		e.tplPhase = templateUnbuilt
		return dom.FragmentRef{}, sillerrors.New("E050").
			WithDetail(fmt.Sprintf("kind %q", e.kind.String())).
			Wrap(err)
	}
	if proto.IsZero() {
		e.tplPhase = templateUnbuilt
		return dom.FragmentRef{}, sillerrors.New("E050").
			WithDetail(fmt.Sprintf("kind %q: builder returned a zero fragment", e.kind.String()))
	}
	e.tplPhase = templateReady
	e.tplProto = proto
	return proto, nil
}
