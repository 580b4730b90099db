package shaderc

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
)

// DefaultCacheCapacity is the module cache capacity used when Cache is
// created with a non-positive capacity.
const DefaultCacheCapacity = 64

// sourceKey hashes a WGSL source and stage into a cache key. FNV-1a is
// enough here: collisions only cost a spurious recompile check, and the
// full source is kept alongside for verification.
type sourceKey struct {
	hash  uint64
	stage Stage
}

func hashSource(source string, stage Stage) sourceKey {
	h := fnv.New64a()
	_, _ = h.Write([]byte(source))
	return sourceKey{hash: h.Sum64(), stage: stage}
}

// Cache memoizes successful compilations keyed by source hash and stage.
// Eviction is LRU with a fixed capacity; failed compilations are never
// cached so a transient failure can clear on retry.
//
// Cache is safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	entries  map[sourceKey]*cacheEntry
	order    []sourceKey // oldest first
	capacity int

	hits   atomic.Uint64
	misses atomic.Uint64
}

type cacheEntry struct {
	source string
	module Module
}

// CacheStats is a point-in-time view of cache effectiveness.
type CacheStats struct {
	Len    int
	Hits   uint64
	Misses uint64
}

// NewCache creates a module cache.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &Cache{
		entries:  make(map[sourceKey]*cacheEntry),
		capacity: capacity,
	}
}

// Get returns the cached module for a source and stage.
func (c *Cache) Get(source string, stage Stage) (Module, bool) {
	key := hashSource(source, stage)

	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && entry.source == source {
		c.touchLocked(key)
		mod := entry.module
		c.mu.Unlock()
		c.hits.Add(1)
		return mod, true
	}
	c.mu.Unlock()

	c.misses.Add(1)
	return Module{}, false
}

// Put stores a compiled module. Invalid modules are ignored.
func (c *Cache) Put(source string, stage Stage, mod Module) {
	if !mod.Valid() {
		return
	}
	key := hashSource(source, stage)

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		entry.source = source
		entry.module = mod
		c.touchLocked(key)
		return
	}

	for len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = &cacheEntry{source: source, module: mod}
	c.order = append(c.order, key)
}

// touchLocked moves a key to the newest position.
func (c *Cache) touchLocked(key sourceKey) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			c.order = append(c.order, key)
			return
		}
	}
}

// Len returns the number of cached modules.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns hit and miss counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Len:    c.Len(),
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}

// Clear drops all cached modules. Counters are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[sourceKey]*cacheEntry)
	c.order = c.order[:0]
}
