// Package modcache caches parsed library modules pulled in by "use"
// statements, keyed by path and invalidated by file signature.
package modcache

import (
	"fmt"
	"os"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/chazu/lathe/pkg/ast"
	"github.com/chazu/lathe/pkg/fsig"
)

var log = commonlog.GetLogger("lathe.modcache")

// ParseFunc parses the text of the file at path.
type ParseFunc func(text, path string) (*ast.Module, error)

type entry struct {
	sig    string
	module *ast.Module // nil if the last parse failed
}

// Cache holds parsed libraries. It implements ast.Libraries and
// ast.Refresher.
type Cache struct {
	mu       sync.RWMutex
	parse    ParseFunc
	entries  map[string]*entry
	visiting map[string]bool
	warnings []string
}

var (
	_ ast.Libraries = (*Cache)(nil)
	_ ast.Refresher = (*Cache)(nil)
)

// New returns an empty cache that parses libraries with parse.
func New(parse ParseFunc) *Cache {
	return &Cache{
		parse:    parse,
		entries:  make(map[string]*entry),
		visiting: make(map[string]bool),
	}
}

// Refresh re-parses the library at path if its signature or any of its
// includes changed, then refreshes the libraries it uses in turn. It
// reports whether anything changed.
func (c *Cache) Refresh(path string) bool {
	c.mu.Lock()
	if c.visiting[path] {
		c.mu.Unlock()
		return false
	}
	c.visiting[path] = true
	changed := c.refreshLocked(path)
	m := c.entries[path].module
	c.mu.Unlock()

	if m != nil && m.HandleDependencies(c) {
		changed = true
	}

	c.mu.Lock()
	delete(c.visiting, path)
	c.mu.Unlock()
	return changed
}

func (c *Cache) refreshLocked(path string) bool {
	sig, _ := fsig.Of(path)
	e, ok := c.entries[path]
	if ok && e.sig == sig && (e.module == nil || !e.module.IncludesChanged()) {
		return false
	}

	next := &entry{sig: sig}
	c.entries[path] = next

	data, err := os.ReadFile(path)
	if err != nil {
		log.Warningf("library %s: %v", path, err)
		c.warnf("Can't open library '%s'.", path)
		return ok
	}
	m, err := c.parse(string(data), path)
	if err != nil {
		log.Warningf("library %s: %v", path, err)
		c.warnf("Failed to compile library '%s': %v", path, err)
		return ok && e.module != nil
	}
	next.module = m
	log.Debugf("compiled library %s", path)
	return true
}

func (c *Cache) warnf(format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

// Lookup returns the cached library at path, loading it on first use.
func (c *Cache) Lookup(path string) *ast.Module {
	c.mu.RLock()
	e, ok := c.entries[path]
	c.mu.RUnlock()
	if !ok {
		c.Refresh(path)
		c.mu.RLock()
		e = c.entries[path]
		c.mu.RUnlock()
	}
	if e == nil {
		return nil
	}
	return e.module
}

// Warnings returns and clears the messages accumulated since the last call.
func (c *Cache) Warnings() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.warnings
	c.warnings = nil
	return w
}

// Flush drops every cached library.
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

// Len returns the number of cached libraries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
