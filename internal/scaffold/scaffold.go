package scaffold

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"text/template"

	"github.com/sill-dev/sill/internal/errors"
)

// Config carries the values substituted into template files.
type Config struct {
	// ProjectName becomes the name field of sill.json.
	ProjectName string

	// Port is the bridge listen port.
	Port int

	// Path is the websocket endpoint path.
	Path string
}

// Template is one built-in project layout.
type Template struct {
	// Name is the template name.
	Name string

	// Description is a one-line summary for help output.
	Description string

	// Files maps relative paths to text/template file contents.
	Files map[string]string
}

var templates = map[string]*Template{
	"minimal": minimalTemplate(),
	"demo":    demoTemplate(),
}

// Get returns a built-in template by name.
func Get(name string) (*Template, error) {
	tmpl, ok := templates[name]
	if !ok {
		return nil, errors.New("E143").
			WithDetail("Template '" + name + "' not found").
			WithSuggestion("Available templates: minimal, demo")
	}
	return tmpl, nil
}

// List returns the available template names, sorted.
func List() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Paths returns the template's relative file paths, sorted.
func (t *Template) Paths() []string {
	paths := make([]string, 0, len(t.Files))
	for p := range t.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Create renders the template into dir. Parent directories are created as
// needed; existing files are overwritten.
func (t *Template) Create(dir string, cfg Config) error {
	for relPath, content := range t.Files {
		tmpl, err := template.New(relPath).Parse(content)
		if err != nil {
			return errors.Newf(errors.CategoryCLI, "invalid template %s: %v", relPath, err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, cfg); err != nil {
			return errors.Newf(errors.CategoryCLI, "template execute error %s: %v", relPath, err)
		}

		fullPath := filepath.Join(dir, relPath)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			return err
		}

		if err := os.WriteFile(fullPath, buf.Bytes(), 0644); err != nil {
			return err
		}
	}

	return nil
}

// minimalTemplate is just a config file and one template.
func minimalTemplate() *Template {
	return &Template{
		Name:        "minimal",
		Description: "Config file and one element template",
		Files: map[string]string{
			"sill.json": `{
  "name": "{{.ProjectName}}",
  "listen": {
    "host": "localhost",
    "port": {{.Port}},
    "path": "{{.Path}}"
  },
  "templates": {
    "dir": "templates"
  },
  "log": {
    "level": "info",
    "format": "text"
  }
}
`,
			"templates/x-panel.html": `<section class="panel"><header class="panel-title"></header><div class="panel-body"></div></section>
`,
		},
	}
}

// demoTemplate adds a second element template and a runnable scenario for
// sill simulate.
func demoTemplate() *Template {
	return &Template{
		Name:        "demo",
		Description: "Starter with element templates and a simulate scenario",
		Files: map[string]string{
			"sill.json": `{
  "name": "{{.ProjectName}}",
  "listen": {
    "host": "localhost",
    "port": {{.Port}},
    "path": "{{.Path}}"
  },
  "templates": {
    "dir": "templates"
  },
  "log": {
    "level": "info",
    "format": "text"
  }
}
`,
			"templates/x-panel.html": `<section class="panel"><header class="panel-title"></header><div class="panel-body"></div></section>
`,
			"templates/x-card.html": `<article class="card"><h2 class="card-title"></h2><p class="card-text"></p></article>
`,
			"scenarios/badge.yaml": `name: badge lifecycle
kinds:
  - kind: x-badge
    observed: [count]
steps:
  - create: x-badge
    as: badge
  - connect: badge
  - set-attribute: badge
    name: count
    value: "1"
  - set-attribute: badge
    name: count
    value: "2"
  - destroy: badge
expect:
  - construct x-badge $badge
  - connect x-badge $badge
  - attr x-badge $badge count "" -> "1"
  - attr x-badge $badge count "1" -> "2"
  - disconnect x-badge $badge
  - finalize changes=2
`,
		},
	}
}
