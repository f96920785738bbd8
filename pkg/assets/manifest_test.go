package assets

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestManifestResolve(t *testing.T) {
	m := NewManifest()
	m.Set("badge.html", "badge.abc123.html")
	m.Set("drawer.html", "drawer.def456.html")

	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{"found entry", "badge.html", "badge.abc123.html"},
		{"second entry", "drawer.html", "drawer.def456.html"},
		{"missing entry returns original", "unknown.html", "unknown.html"},
		{"empty string returns empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Resolve(tt.source)
			if got != tt.expected {
				t.Errorf("Resolve(%q) = %q, want %q", tt.source, got, tt.expected)
			}
		})
	}
}

func TestManifestHas(t *testing.T) {
	m := NewManifest()
	m.Set("badge.html", "badge.abc123.html")

	if !m.Has("badge.html") {
		t.Error("Has(badge.html) = false, want true")
	}
	if m.Has("unknown.html") {
		t.Error("Has(unknown.html) = true, want false")
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	contents := `{"badge.html": "badge.abc123.html", "drawer.html": "drawer.def456.html"}`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest failed: %v", err)
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
	if got := m.Resolve("badge.html"); got != "badge.abc123.html" {
		t.Errorf("Resolve(badge.html) = %q, want versioned key", got)
	}

	if _, err := LoadManifest(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing manifest file")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadManifest(bad); err == nil {
		t.Error("expected error for malformed manifest")
	}
}

func TestManifestAllReturnsCopy(t *testing.T) {
	m := NewManifest()
	m.Set("a.html", "a.123.html")

	all := m.All()
	all["b.html"] = "b.456.html"
	if m.Has("b.html") {
		t.Error("All() should return a copy, but modification affected original")
	}
}

func TestVersionedSource(t *testing.T) {
	m := NewManifest()
	m.Set("badge.html", "badge.abc123.html")

	src := Versioned(Map{
		"badge.abc123.html": "<div>versioned</div>",
		"plain.html":        "<div>plain</div>",
	}, m)

	data, err := src.Load(context.Background(), "badge.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "<div>versioned</div>" {
		t.Errorf("expected manifest resolution, got %q", data)
	}

	// Names without a manifest entry load as-is.
	data, err = src.Load(context.Background(), "plain.html")
	if err != nil || string(data) != "<div>plain</div>" {
		t.Errorf("expected passthrough load, got %q, %v", data, err)
	}
}
