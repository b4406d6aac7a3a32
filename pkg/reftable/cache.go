// SPDX-License-Identifier: MPL-2.0

package reftable

import (
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of parsed tables a Cache keeps.
const DefaultCacheSize = 4

type (
	// Cache shares parsed tables between loaders reading the same file.
	// A table is reused only while the file's size and modification time
	// are unchanged.
	Cache struct {
		tables *lru.Cache[cacheKey, *Table]
	}

	cacheKey struct {
		path    string
		size    int64
		modTime int64
	}
)

// NewCache creates a Cache holding up to size tables.
func NewCache(size int) (*Cache, error) {
	tables, err := lru.New[cacheKey, *Table](size)
	if err != nil {
		return nil, fmt.Errorf("creating table cache: %w", err)
	}
	return &Cache{tables: tables}, nil
}

// Load returns the parsed table of the file at path.
func (c *Cache) Load(path string) (*Table, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("reading reference data: %w", err)
	}

	key := cacheKey{path: abs, size: info.Size(), modTime: info.ModTime().UnixNano()}
	if t, ok := c.tables.Get(key); ok {
		return t, nil
	}

	t, err := parseFile(abs)
	if err != nil {
		return nil, err
	}
	c.tables.Add(key, t)
	return t, nil
}

// Len returns the number of cached tables.
func (c *Cache) Len() int { return c.tables.Len() }

func parseFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading reference data: %w", err)
	}
	defer func() { _ = f.Close() }() // read-only file

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
