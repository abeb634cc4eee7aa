// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package resfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/zeebo/blake3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/suprsokr/go-resfile/block"
)

// ErrNotFound is returned when a name is not present on the search path.
var ErrNotFound = errors.New("resource not found")

type entry struct {
	value  *block.Value
	path   string
	digest [32]byte
}

// Cache holds decoded resources keyed by name. Entries live until Save or
// Invalidate removes them; nothing expires on its own.
//
// Concurrent loads of one name share a single read and decode. The values
// handed out are shared too: edit them and Save, or Invalidate to discard
// the edits.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	gens    map[string]uint64 // bumped by Invalidate
	group   singleflight.Group

	search *SearchPath
	logger *zap.Logger
	sugar  *zap.SugaredLogger
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithSearchPath resolves relative names against dirs, in order of
// increasing priority. Saves of relative names go to the last directory.
func WithSearchPath(dirs ...string) CacheOption {
	return func(c *Cache) {
		if len(dirs) > 0 {
			c.search = NewSearchPath(dirs...)
		}
	}
}

// NewCache returns an empty cache. A nil logger discards output.
func NewCache(logger *zap.Logger, opts ...CacheOption) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cache{
		entries: make(map[string]*entry),
		gens:    make(map[string]uint64),
		logger:  logger,
		sugar:   logger.Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchPath returns the cache's search path, or nil.
func (c *Cache) SearchPath() *SearchPath { return c.search }

func (c *Cache) searched(name string) bool {
	return c.search != nil && !filepath.IsAbs(name)
}

func (c *Cache) key(name string) string {
	if c.searched(name) {
		return normalizeName(name)
	}
	return filepath.Clean(name)
}

// resolve returns the file to read for name.
func (c *Cache) resolve(name string) (string, error) {
	if !c.searched(name) {
		return name, nil
	}
	if path, ok := c.search.Find(name); ok {
		return path, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// target returns the file Save writes for name.
func (c *Cache) target(name string) string {
	if !c.searched(name) {
		return name
	}
	dirs := c.search.Dirs()
	top := len(dirs) - 1
	if path, ok := c.search.locate(top, normalizeName(name)); ok {
		return path
	}
	return filepath.Join(dirs[top], filepath.FromSlash(normalizeSeparators(name)))
}

// Load returns the decoded resource called name, reading it on first use.
func (c *Cache) Load(name string) (*block.Value, error) {
	key := c.key(name)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return e.value, nil
	}
	c.mu.Unlock()

	res, err, shared := c.group.Do(key, func() (any, error) {
		return c.load(name, key)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.sugar.Debugw("shared load", "name", name)
	}
	return res.(*entry).value, nil
}

func (c *Cache) load(name, key string) (*entry, error) {
	gen := c.generation(key)
	e, err := c.read(name)
	if err != nil {
		return nil, err
	}
	c.store(key, gen, e)
	return e, nil
}

func (c *Cache) read(name string) (*entry, error) {
	path, err := c.resolve(name)
	if err != nil {
		return nil, err
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	v, err := Decode(buf, path, c.logger)
	if err != nil {
		return nil, err
	}
	c.sugar.Debugw("loaded", "name", name, "path", path, "size", len(buf))
	return &entry{value: v, path: path, digest: blake3.Sum256(buf)}, nil
}

func (c *Cache) generation(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[key]
}

// store caches e unless key was invalidated after generation gen was read.
func (c *Cache) store(key string, gen uint64, e *entry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key] != gen {
		c.sugar.Debugw("discarded stale load", "key", key, "path", e.path)
		return false
	}
	c.entries[key] = e
	return true
}

// Digest returns the content digest of the bytes name was loaded from.
func (c *Cache) Digest(name string) ([32]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[c.key(name)]
	if !ok {
		return [32]byte{}, false
	}
	return e.digest, true
}

// Save encodes v and writes it to name, replacing the file atomically,
// then drops the cached entry. Writing is skipped when the target already
// holds the same bytes.
func (c *Cache) Save(name string, v *block.Value) error {
	buf, err := Encode(v, c.logger)
	if err != nil {
		return err
	}
	path := c.target(name)
	key := c.key(name)

	c.mu.Lock()
	e, cached := c.entries[key]
	c.mu.Unlock()
	if cached && e.path == path && e.digest == blake3.Sum256(buf) {
		if _, err := os.Stat(path); err == nil {
			c.sugar.Debugw("unchanged", "name", name)
			return nil
		}
	}

	if err := writeFileAtomic(path, buf); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	if c.search != nil {
		c.search.Refresh()
	}
	c.Invalidate(name)
	c.sugar.Infow("saved", "name", name, "path", path, "size", len(buf))
	return nil
}

// Invalidate drops the cached entry for name. A load of name still in
// flight is not cached when it completes.
func (c *Cache) Invalidate(name string) {
	key := c.key(name)
	c.mu.Lock()
	delete(c.entries, key)
	c.gens[key]++
	c.mu.Unlock()
	c.group.Forget(key)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
