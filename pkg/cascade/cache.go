package cascade

import (
	"sync"
	"sync/atomic"

	"github.com/golang/groupcache/lru"

	"mercator-hq/cascade/pkg/rules"
)

// CacheObserver receives cache events, typically to export metrics.
type CacheObserver interface {
	CacheHit()
	CacheMiss()
	CacheEvicted()
	CacheInvalidated(dropped int)
	CacheEntries(n int)
}

type cacheKey struct {
	rule rules.RuleID
	path string
	env  string
}

type cacheEntry struct {
	result Result
	ok     bool
}

// CacheStats is a snapshot of cache counters.
type CacheStats struct {
	Hits          uint64
	Misses        uint64
	Invalidations uint64
	Entries       int
	Generation    uint64
}

// Cache is a bounded read-through memo of Resolve results. All entries
// belong to a single generation; a lookup against a cascade of any other
// generation drops them together before computing the new result.
type Cache struct {
	mu         sync.Mutex
	entries    *lru.Cache
	maxEntries int
	generation uint64
	observer   CacheObserver

	hits          atomic.Uint64
	misses        atomic.Uint64
	invalidations atomic.Uint64
}

// NewCache creates a cache holding at most maxEntries results; 0 means no
// limit. observer may be nil.
func NewCache(maxEntries int, observer CacheObserver) *Cache {
	c := &Cache{maxEntries: maxEntries, observer: observer}
	c.entries = c.newLRU()
	return c
}

func (c *Cache) newLRU() *lru.Cache {
	l := lru.New(c.maxEntries)
	l.OnEvicted = func(lru.Key, interface{}) {
		if c.observer != nil {
			c.observer.CacheEvicted()
		}
	}
	return l
}

// Resolve returns cs.Resolve(id, ctx), memoized.
func (c *Cache) Resolve(cs *Cascade, id rules.RuleID, ctx rules.Context) (Result, bool) {
	key := cacheKey{rule: id, path: ctx.NormalizedPath(), env: ctx.Env}

	c.mu.Lock()
	if cs.Generation() != c.generation {
		c.resetLocked(cs.Generation())
	}
	if cs.Generation() != c.generation {
		// cs is older than the cached entries: serve it uncached.
		c.mu.Unlock()
		return cs.Resolve(id, ctx)
	}
	if v, ok := c.entries.Get(key); ok {
		c.mu.Unlock()
		c.hits.Add(1)
		if c.observer != nil {
			c.observer.CacheHit()
		}
		e := v.(cacheEntry)
		return e.result.clone(), e.ok
	}
	c.mu.Unlock()

	c.misses.Add(1)
	if c.observer != nil {
		c.observer.CacheMiss()
	}

	res, ok := cs.Resolve(id, ctx)

	c.mu.Lock()
	// Another goroutine may have moved the cache to a newer cascade while
	// this result was computed; never store a stale generation.
	if c.generation == cs.Generation() {
		c.entries.Add(key, cacheEntry{result: res.clone(), ok: ok})
		if c.observer != nil {
			c.observer.CacheEntries(c.entries.Len())
		}
	}
	c.mu.Unlock()

	return res, ok
}

// Invalidate drops every entry and tags the cache with generation.
func (c *Cache) Invalidate(generation uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked(generation)
}

func (c *Cache) resetLocked(generation uint64) {
	// Generations only move forward.
	if generation < c.generation {
		return
	}
	dropped := c.entries.Len()
	c.entries = c.newLRU()
	c.generation = generation
	c.invalidations.Add(1)
	if c.observer != nil {
		c.observer.CacheInvalidated(dropped)
		c.observer.CacheEntries(0)
	}
}

// Len returns the number of cached results.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Generation returns the generation the entries belong to.
func (c *Cache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	entries, gen := c.entries.Len(), c.generation
	c.mu.Unlock()
	return CacheStats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Invalidations: c.invalidations.Load(),
		Entries:       entries,
		Generation:    gen,
	}
}
