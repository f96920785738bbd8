package assets

import (
	"context"
	"encoding/json"
	"os"
	"sync"
)

// Manifest maps logical template names to their versioned asset keys.
// Deployments that fingerprint template files write a manifest.json next to
// them:
//
//	{
//	  "status-badge.html": "status-badge.a1b2c3d4.html",
//	  "app-drawer.html": "app-drawer.e5f6a7b8.html"
//	}
//
// Resolving through the manifest lets long-lived caches keep serving old
// keys while new code loads new ones. It is safe for concurrent use.
type Manifest struct {
	entries map[string]string
	mu      sync.RWMutex
}

// NewManifest creates an empty manifest. Use LoadManifest to read one from
// disk.
func NewManifest() *Manifest {
	return &Manifest{
		entries: make(map[string]string),
	}
}

// LoadManifest reads a manifest.json file. The file is a flat JSON object
// mapping logical names to versioned keys.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	return &Manifest{entries: entries}, nil
}

// Resolve returns the versioned key for a logical name. Unknown names pass
// through unchanged, so a missing manifest entry falls back to the plain
// file.
func (m *Manifest) Resolve(name string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if resolved, ok := m.entries[name]; ok {
		return resolved
	}
	return name
}

// Has reports whether the manifest has an entry for name.
func (m *Manifest) Has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.entries[name]
	return ok
}

// Set adds or updates an entry. Primarily useful for tests and dynamic
// manifest building.
func (m *Manifest) Set(name, resolved string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[name] = resolved
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entries)
}

// All returns a copy of every entry.
func (m *Manifest) All() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]string, len(m.entries))
	for k, v := range m.entries {
		result[k] = v
	}
	return result
}

// versionedSource resolves names through a manifest before loading.
type versionedSource struct {
	src      Source
	manifest *Manifest
}

// Versioned wraps a source so that logical names resolve to their
// manifest keys before loading:
//
//	manifest, _ := assets.LoadManifest("templates/manifest.json")
//	src := assets.Versioned(assets.NewDir("templates"), manifest)
//	src.Load(ctx, "status-badge.html") // reads status-badge.a1b2c3d4.html
func Versioned(src Source, m *Manifest) Source {
	return &versionedSource{src: src, manifest: m}
}

// Load implements Source.
func (v *versionedSource) Load(ctx context.Context, name string) ([]byte, error) {
	return v.src.Load(ctx, v.manifest.Resolve(name))
}
