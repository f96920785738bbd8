// Package assets loads template markup from named sources.
//
// A Source maps logical template names to markup bytes. Implementations
// cover local directories, in-memory maps, and S3 buckets; Chain tries
// several in order and Cache memoizes whatever sits behind it:
//
//	src := assets.NewCache(assets.Chain{
//	    assets.NewDir("templates"),
//	    assets.NewS3Source(client, "my-bucket", "templates/"),
//	})
//
// Element kinds consume sources through TemplateFromSource, which turns a
// named asset into the kind's template builder.
package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNotFound is returned when a source has no asset under the given name.
var ErrNotFound = errors.New("assets: not found")

// Source loads named assets. Implementations must be safe for concurrent
// use.
type Source interface {
	// Load returns the asset's contents. It returns ErrNotFound when the
	// name has no entry; any other error means the lookup itself failed.
	Load(ctx context.Context, name string) ([]byte, error)
}

// Map is an in-memory Source, useful for tests and embedded defaults.
type Map map[string]string

// Load implements Source.
func (m Map) Load(_ context.Context, name string) ([]byte, error) {
	markup, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return []byte(markup), nil
}

// Dir serves assets from a directory tree. Names are slash-separated
// relative paths; anything escaping the root is rejected.
type Dir struct {
	root string
}

// NewDir creates a directory-backed source rooted at root.
func NewDir(root string) *Dir {
	return &Dir{root: root}
}

// Load implements Source.
func (d *Dir) Load(_ context.Context, name string) ([]byte, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return nil, fmt.Errorf("assets: name %q escapes the source root", name)
	}

	data, err := os.ReadFile(filepath.Join(d.root, clean))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Chain tries each source in order and returns the first hit. An error
// other than ErrNotFound stops the walk.
type Chain []Source

// Load implements Source.
func (c Chain) Load(ctx context.Context, name string) ([]byte, error) {
	for _, src := range c {
		data, err := src.Load(ctx, name)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Cache memoizes successful loads from the underlying source. Deployed
// template markup is immutable, so entries never expire; use Versioned
// names when markup changes between releases.
type Cache struct {
	src     Source
	entries sync.Map // name → []byte
}

// NewCache wraps src with a memoizing layer.
func NewCache(src Source) *Cache {
	return &Cache{src: src}
}

// Load implements Source.
func (c *Cache) Load(ctx context.Context, name string) ([]byte, error) {
	if cached, ok := c.entries.Load(name); ok {
		return cached.([]byte), nil
	}

	data, err := c.src.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	c.entries.Store(name, data)
	return data, nil
}
