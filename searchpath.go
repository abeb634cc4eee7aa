// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package resfile

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// normalizeName normalizes a resource name for lookup.
// Resources name each other with backslashes and without regard to case.
func normalizeName(name string) string {
	normalized := strings.ToLower(normalizeSeparators(name))
	return filepath.ToSlash(filepath.Clean(normalized))
}

func normalizeSeparators(name string) string {
	return strings.ReplaceAll(name, "\\", "/")
}

// SearchPath is a prioritized list of resource directories.
// The last directory has the highest priority, so a mod directory listed
// after the base game overrides files of the same name.
type SearchPath struct {
	mu    sync.RWMutex
	dirs  []string
	index map[string]int // cache: normalized name -> directory index
	built bool
}

// NewSearchPath returns a search path over dirs in order of increasing
// priority.
func NewSearchPath(dirs ...string) *SearchPath {
	return &SearchPath{
		dirs:  append([]string(nil), dirs...),
		index: make(map[string]int),
	}
}

// Dirs returns the directories in order of increasing priority.
func (p *SearchPath) Dirs() []string {
	return append([]string(nil), p.dirs...)
}

// Find returns the on-disk path of the highest-priority file called name.
func (p *SearchPath) Find(name string) (string, bool) {
	p.mu.RLock()
	built := p.built
	p.mu.RUnlock()
	if !built {
		p.Refresh()
	}

	key := normalizeName(name)
	p.mu.RLock()
	dirIdx, found := p.index[key]
	p.mu.RUnlock()
	if !found {
		return p.findLinear(name)
	}

	path, ok := p.locate(dirIdx, key)
	if !ok {
		// File removed since the index was built.
		p.Refresh()
		return p.findLinear(name)
	}
	return path, true
}

// Has reports whether any directory holds name.
func (p *SearchPath) Has(name string) bool {
	_, ok := p.Find(name)
	return ok
}

// findLinear checks each directory directly, highest priority first.
func (p *SearchPath) findLinear(name string) (string, bool) {
	rel := filepath.FromSlash(normalizeSeparators(name))
	for i := len(p.dirs) - 1; i >= 0; i-- {
		path := filepath.Join(p.dirs[i], rel)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}

// locate recovers the real spelling of key inside directory dirIdx.
func (p *SearchPath) locate(dirIdx int, key string) (string, bool) {
	return locateIn(p.dirs[dirIdx], strings.Split(key, "/"))
}

func locateIn(dir string, segs []string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if !strings.EqualFold(e.Name(), segs[0]) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if len(segs) == 1 {
			if e.Type().IsRegular() {
				return path, true
			}
			continue
		}
		if e.IsDir() {
			if found, ok := locateIn(path, segs[1:]); ok {
				return found, true
			}
		}
	}
	return "", false
}

// List returns the union of resource names across the path, each once,
// spelled as in its highest-priority directory.
func (p *SearchPath) List() []string {
	seen := make(map[string]struct{})
	var result []string
	for i := len(p.dirs) - 1; i >= 0; i-- {
		for _, name := range listDir(p.dirs[i]) {
			key := normalizeName(name)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			result = append(result, name)
		}
	}
	return result
}

// Refresh rebuilds the name index.
// Call it after files are added to or removed from the directories.
func (p *SearchPath) Refresh() {
	index := make(map[string]int)

	// Highest priority first, so earlier hits win.
	for i := len(p.dirs) - 1; i >= 0; i-- {
		for _, name := range listDir(p.dirs[i]) {
			key := normalizeName(name)
			if _, exists := index[key]; !exists {
				index[key] = i
			}
		}
	}

	p.mu.Lock()
	p.index = index
	p.built = true
	p.mu.Unlock()
}

// listDir returns the slash separated names of regular files below dir.
// A missing or unreadable directory contributes nothing.
func listDir(dir string) []string {
	var names []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	return names
}
