package cascade

import (
	"sync/atomic"

	"mercator-hq/cascade/pkg/rules"
)

// Resolver serves queries against the current cascade of a configuration
// context. Swap replaces the cascade when the configuration is reloaded and
// invalidates the cache as a unit.
type Resolver struct {
	current atomic.Pointer[Cascade]
	cache   *Cache
}

// NewResolver creates a resolver. cache may be nil to disable memoization.
func NewResolver(cache *Cache) *Resolver {
	return &Resolver{cache: cache}
}

// Swap installs c as the current cascade and returns the previous one.
func (r *Resolver) Swap(c *Cascade) *Cascade {
	prev := r.current.Swap(c)
	if r.cache != nil && c != nil {
		r.cache.Invalidate(c.Generation())
	}
	return prev
}

// Current returns the current cascade, or nil before the first Swap.
func (r *Resolver) Current() *Cascade {
	return r.current.Load()
}

// Cache returns the resolver cache, or nil.
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// Resolve resolves id for ctx against the current cascade. It reports
// NotConfigured (false) when no cascade is installed yet.
func (r *Resolver) Resolve(id rules.RuleID, ctx rules.Context) (Result, bool) {
	c := r.current.Load()
	if c == nil {
		return Result{}, false
	}
	if r.cache == nil {
		return c.Resolve(id, ctx)
	}
	return r.cache.Resolve(c, id, ctx)
}

// Dump resolves every configured rule of the current cascade for ctx.
func (r *Resolver) Dump(ctx rules.Context) map[rules.RuleID]Result {
	c := r.current.Load()
	if c == nil {
		return map[rules.RuleID]Result{}
	}
	return c.Dump(ctx)
}
