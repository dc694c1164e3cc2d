package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"slices"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/treecss/treecss/internal/css"
)

// A StylesheetCache stores compiled stylesheets by the hash of their path and source.
// Imported stylesheets are not part of the key: entries should be invalidated when an
// imported file changes.
type StylesheetCache struct {
	entries cmap.ConcurrentMap[[32]byte, *css.StyleSheet]
}

func NewStylesheetCache() *StylesheetCache {
	return &StylesheetCache{
		entries: cmap.NewWithCustomShardingFunction[[32]byte, *css.StyleSheet](func(key [32]byte) uint32 {
			return binary.LittleEndian.Uint32(key[:4])
		}),
	}
}

func entryKey(path, source string) [32]byte {
	h := sha256.New()
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write([]byte(source))

	var key [32]byte
	h.Sum(key[:0])
	return key
}

func (c *StylesheetCache) Get(path, source string) (*css.StyleSheet, bool) {
	return c.entries.Get(entryKey(path, source))
}

func (c *StylesheetCache) Put(path, source string, stylesheet *css.StyleSheet) {
	c.entries.Set(entryKey(path, source), stylesheet)
}

// GetOrCompile returns the cached stylesheet for (path, source) or compiles source with
// compiler and caches the result. cached is true if the compilation was skipped.
func (c *StylesheetCache) GetOrCompile(ctx context.Context, compiler *css.Compiler, path, source string) (stylesheet *css.StyleSheet, cached bool, err error) {
	if stylesheet, ok := c.Get(path, source); ok {
		return stylesheet, true, nil
	}

	stylesheet, err = compiler.CompileText(ctx, source, path)
	if err != nil {
		return nil, false, err
	}

	c.Put(path, source, stylesheet)
	return stylesheet, false, nil
}

func (c *StylesheetCache) Len() int {
	return c.entries.Count()
}

func (c *StylesheetCache) InvalidateAllEntries() {
	c.entries.Clear()
}

func (c *StylesheetCache) DeleteEntryByValue(stylesheet *css.StyleSheet) {
	for key, cached := range c.entries.Items() {
		if cached == stylesheet {
			c.entries.RemoveCb(key, func(key [32]byte, v *css.StyleSheet, exists bool) bool {
				return exists && v == stylesheet
			})
		}
	}
}

func (c *StylesheetCache) KeepEntriesByValue(kept ...*css.StyleSheet) {
	for key, cached := range c.entries.Items() {
		if !slices.Contains(kept, cached) {
			c.entries.RemoveCb(key, func(key [32]byte, v *css.StyleSheet, exists bool) bool {
				return exists && v == cached
			})
		}
	}
}
