package vdom

import (
	"path/filepath"
	"sync"
)

// KeepAliveEntry is one cached component: its last rendered tree plus
// the arena id of the (still-live, just detached) instance that
// produced it.
type KeepAliveEntry struct {
	VNode      *VNode
	InstanceID uint64
}

// KeepAliveCache maps a cache key to a cached component and evicts by
// least-recently-activated order once Max is exceeded. CacheKey is the
// vnode's own key when it has one, otherwise the component descriptor's
// Name (see VNode.CacheKey).
type KeepAliveCache struct {
	mu      sync.Mutex
	Max     int
	order   []string // index 0 is least-recently-used
	entries map[string]*KeepAliveEntry
}

func NewKeepAliveCache(max int) *KeepAliveCache {
	return &KeepAliveCache{Max: max, entries: make(map[string]*KeepAliveEntry)}
}

// Get looks up a cache entry and, on a hit, moves it to
// most-recently-used per the "on hit, remove-then-reinsert the key"
// rule.
func (c *KeepAliveCache) Get(key string) (*KeepAliveEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if ok {
		c.touchLocked(key)
	}
	return entry, ok
}

// Put inserts or refreshes a cache entry, evicting the least-recently-
// used entry when doing so pushes the cache over Max. It returns the
// evicted entry (nil if nothing was evicted) so the caller can unmount
// or move its host nodes.
func (c *KeepAliveCache) Put(key string, entry *KeepAliveEntry) (evictedKey string, evicted *KeepAliveEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = entry
		c.touchLocked(key)
		return "", nil
	}

	c.entries[key] = entry
	c.order = append(c.order, key)

	if c.Max > 0 && len(c.order) > c.Max {
		evictedKey = c.order[0]
		c.order = c.order[1:]
		evicted = c.entries[evictedKey]
		delete(c.entries, evictedKey)
	}
	return evictedKey, evicted
}

// Remove drops a key unconditionally, used when an include/exclude
// pattern change makes a cached entry no longer eligible.
func (c *KeepAliveCache) Remove(key string) (*KeepAliveEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return entry, true
}

func (c *KeepAliveCache) touchLocked(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.order = append(c.order, key)
}

// Keys returns the current LRU order, oldest first, for diagnostics
// and tests.
func (c *KeepAliveCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}

// Prune re-evaluates every cached key's component name against a
// fresh include/exclude pattern set and evicts the ones that no longer
// match, returning their entries so the caller can unmount them.
func (c *KeepAliveCache) Prune(nameOf func(key string) string, include, exclude []string) []*KeepAliveEntry {
	c.mu.Lock()
	stale := make([]string, 0)
	for key := range c.entries {
		if !MatchesKeepAlivePattern(nameOf(key), include, exclude) {
			stale = append(stale, key)
		}
	}
	c.mu.Unlock()

	var evicted []*KeepAliveEntry
	for _, key := range stale {
		if entry, ok := c.Remove(key); ok {
			evicted = append(evicted, entry)
		}
	}
	return evicted
}

// MatchesKeepAlivePattern reports whether name should be cached: it
// must match some include pattern (or include be empty, meaning
// "everything"), and must not match any exclude pattern. Patterns are
// shell globs (filepath.Match), the simplest thing that reads
// component-name patterns like "Modal*" the way the source's
// comma/regexp-list config does.
func MatchesKeepAlivePattern(name string, include, exclude []string) bool {
	for _, pattern := range exclude {
		if ok, _ := filepath.Match(pattern, name); ok {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, pattern := range include {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// Deactivate moves a cached instance's host nodes into a detached
// storage container (a host handle the caller owns, e.g. an
// off-document fragment) rather than unmounting them, then flushes the
// deactivated hook queue. detach is the actual per-node move, supplied
// by the caller since only it knows the host's Insert semantics for
// this VNode's mounted handles.
func (c *KeepAliveCache) Deactivate(inst *Instance, detach func()) {
	detach()
	inst.runDeactivatedHooks()
}

// Activate moves a cached instance's host nodes back into the live
// tree and flushes the activated hook queue. Callers must re-patch the
// instance's props against the new VNode (a normal diff) before
// calling Activate, so the activated hook observes final state.
func (c *KeepAliveCache) Activate(inst *Instance, reattach func()) {
	reattach()
	inst.runActivatedHooks()
}
