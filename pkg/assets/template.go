package assets

import (
	"context"
	"fmt"

	"github.com/sill-dev/sill/pkg/custom"
	"github.com/sill-dev/sill/pkg/dom"
)

// TemplateFromSource returns a template builder that loads markup from the
// source by name and parses it through the host:
//
//	custom.Define(reg, dom.MustKindName("status-badge"), custom.Descriptor[badge]{
//	    Template: assets.TemplateFromSource(src, "status-badge.html"),
//	    ...
//	})
//
// The builder runs at most once per kind on the first instantiation. A load
// failure surfaces as a construction error for the element that triggered
// the build, and the next construction retries.
func TemplateFromSource(src Source, name string) custom.TemplateBuilder {
	return func(h dom.Host) (dom.FragmentRef, error) {
		data, err := src.Load(context.Background(), name)
		if err != nil {
			return dom.FragmentRef{}, fmt.Errorf("assets: template %q: %w", name, err)
		}
		return h.CreateTemplate(string(data))
	}
}
