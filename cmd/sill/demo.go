package main

import (
	"log/slog"
	"strconv"

	"github.com/sill-dev/sill/pkg/assets"
	"github.com/sill-dev/sill/pkg/custom"
	"github.com/sill-dev/sill/pkg/dom"
)

// The demo set gives engine developers kinds to integration-test against
// before wiring a real application. x-panel exercises templates and shadow
// roots, x-echo answers observed attribute writes with host writes, and
// x-badge keeps per-instance state across attribute updates.

var (
	attrValue = dom.MustName("value")
	attrEcho  = dom.MustName("echo")
	attrCount = dom.MustName("count")
	attrReady = dom.MustName("data-ready")
)

const panelMarkup = `<section class="panel"><header class="panel-title"></header><div class="panel-body"></div></section>`

// builtinTemplates is the fallback template source. Project files and the
// optional S3 bucket win; these serve only when nothing else has the name.
func builtinTemplates() assets.Map {
	return assets.Map{
		"x-panel.html": panelMarkup,
	}
}

type panelState struct {
	root dom.ShadowRoot
}

type echoState struct {
	mirrored int
}

type badgeState struct {
	count int
}

// registerDemoKinds installs the demo set into reg, loading templates
// through src.
func registerDemoKinds(reg *custom.Registry, src assets.Source, logger *slog.Logger) error {
	if err := custom.Define(reg, dom.MustName("x-panel"), custom.Descriptor[panelState]{
		Template: assets.TemplateFromSource(src, "x-panel.html"),
		New: func(el custom.Element[panelState]) (*panelState, error) {
			root, err := el.AttachTemplate(dom.ShadowOpen)
			if err != nil {
				return nil, err
			}
			return &panelState{root: root}, nil
		},
		Connected: func(el custom.Element[panelState]) {
			if err := el.SetAttribute(attrReady, "true"); err != nil {
				logger.Warn("panel ready mark failed", "node", el.Ref(), "error", err)
			}
		},
	}); err != nil {
		return err
	}

	if err := custom.Define(reg, dom.MustName("x-echo"), custom.Descriptor[echoState]{
		ObservedAttributes: []dom.Name{attrValue},
		New: func(el custom.Element[echoState]) (*echoState, error) {
			return &echoState{}, nil
		},
		AttributeChanged: func(el custom.Element[echoState], change dom.AttributeChange) {
			// Mirror into an unobserved attribute so the write cannot
			// re-trigger this callback.
			var err error
			if change.New.Present {
				err = el.SetAttribute(attrEcho, change.New.Value)
			} else {
				err = el.RemoveAttribute(attrEcho)
			}
			if err != nil {
				logger.Warn("echo mirror failed", "node", el.Ref(), "error", err)
				return
			}
			el.With(func(s *echoState) { s.mirrored++ })
		},
	}); err != nil {
		return err
	}

	return custom.Define(reg, dom.MustName("x-badge"), custom.Descriptor[badgeState]{
		ObservedAttributes: []dom.Name{attrCount},
		New: func(el custom.Element[badgeState]) (*badgeState, error) {
			return &badgeState{}, nil
		},
		AttributeChanged: func(el custom.Element[badgeState], change dom.AttributeChange) {
			n, err := strconv.Atoi(change.New.Or("0"))
			if err != nil {
				logger.Warn("badge count not numeric", "node", el.Ref(), "value", change.New.Or(""))
				return
			}
			el.With(func(s *badgeState) { s.count = n })
		},
	})
}
