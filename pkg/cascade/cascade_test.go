package cascade

import (
	"fmt"
	"math"
	"reflect"
	"sync"
	"testing"

	"mercator-hq/cascade/pkg/rules"
)

func layer(name string, tier, order int, scope rules.Scope, settings map[rules.RuleID]rules.Setting) *rules.Layer {
	return rules.NewLayer(rules.LayerSpec{Name: name, Tier: tier, Order: order, Scope: scope, Settings: settings})
}

func baseLayers() []*rules.Layer {
	return []*rules.Layer{
		layer("base", 0, 0, rules.Scope{}, map[rules.RuleID]rules.Setting{
			"semi":    rules.MustSetting(rules.Error, "always"),
			"max-len": rules.MustSetting(rules.Warn, map[string]any{"code": 80}),
		}),
		layer("team", 1, 0, rules.Scope{}, map[rules.RuleID]rules.Setting{
			"semi": rules.MustSetting(rules.Off),
		}),
		layer("tests", 1, 1, rules.Scope{Globs: []string{"test/**"}}, map[rules.RuleID]rules.Setting{
			"max-len": rules.MustSetting(rules.Off),
		}),
		layer("ci", 2, 0, rules.Scope{Envs: []string{"ci"}}, map[rules.RuleID]rules.Setting{
			"no-console": rules.MustSetting(rules.Error),
		}),
	}
}

func build(tb testing.TB, layers []*rules.Layer) *Cascade {
	tb.Helper()
	c, err := New(layers)
	if err != nil {
		tb.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNewRejectsUnencodableOptions(t *testing.T) {
	before := build(t, baseLayers()).Generation()

	bad := layer("base", 0, 0, rules.Scope{}, map[rules.RuleID]rules.Setting{
		"indent": {Severity: rules.Error, Options: []any{math.NaN()}},
	})
	c, err := New([]*rules.Layer{bad})
	if err == nil || c != nil {
		t.Fatalf("New() = %v, %v, want an error", c, err)
	}

	if after := build(t, baseLayers()).Generation(); after != before+1 {
		t.Errorf("generation after a failed New = %d, want %d", after, before+1)
	}
}

func TestResolveCrossTierOverride(t *testing.T) {
	c := build(t, baseLayers())

	res, ok := c.Resolve("semi", rules.Context{Path: "src/a.js"})
	if !ok {
		t.Fatal("Resolve(semi) ok = false, want true")
	}
	if res.Severity != rules.Off || res.Source != "team" {
		t.Errorf("Resolve(semi) = %v from %q, want off from team", res.Severity, res.Source)
	}
	if len(res.Options) != 0 {
		t.Errorf("Resolve(semi) options = %v, want none (settings are atomic)", res.Options)
	}
	if !reflect.DeepEqual(res.Shadowed, []string{"base"}) {
		t.Errorf("Resolve(semi) shadowed = %v, want [base]", res.Shadowed)
	}
}

func TestResolveScope(t *testing.T) {
	c := build(t, baseLayers())

	tests := []struct {
		name       string
		rule       rules.RuleID
		ctx        rules.Context
		wantOK     bool
		wantSource string
		wantSev    rules.Severity
	}{
		{name: "glob matches", rule: "max-len", ctx: rules.Context{Path: "test/unit/a.js"}, wantOK: true, wantSource: "tests", wantSev: rules.Off},
		{name: "glob matches dotted path", rule: "max-len", ctx: rules.Context{Path: "./test/a.js"}, wantOK: true, wantSource: "tests", wantSev: rules.Off},
		{name: "glob misses", rule: "max-len", ctx: rules.Context{Path: "src/a.js"}, wantOK: true, wantSource: "base", wantSev: rules.Warn},
		{name: "env matches", rule: "no-console", ctx: rules.Context{Path: "src/a.js", Env: "ci"}, wantOK: true, wantSource: "ci", wantSev: rules.Error},
		{name: "env misses", rule: "no-console", ctx: rules.Context{Path: "src/a.js", Env: "local"}},
		{name: "unconfigured", rule: "eqeqeq", ctx: rules.Context{Path: "src/a.js"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := c.Resolve(tt.rule, tt.ctx)
			if ok != tt.wantOK {
				t.Fatalf("Resolve(%s) ok = %v, want %v", tt.rule, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if res.Source != tt.wantSource || res.Severity != tt.wantSev {
				t.Errorf("Resolve(%s) = %v from %q, want %v from %q", tt.rule, res.Severity, res.Source, tt.wantSev, tt.wantSource)
			}
		})
	}
}

func TestResolveReturnsCopies(t *testing.T) {
	c := build(t, baseLayers())

	res, _ := c.Resolve("max-len", rules.Context{Path: "src/a.js"})
	res.Options[0].(map[string]any)["code"] = int64(999)

	again, _ := c.Resolve("max-len", rules.Context{Path: "src/a.js"})
	if got := again.Options[0].(map[string]any)["code"]; got != int64(80) {
		t.Errorf("code after caller mutation = %v, want 80", got)
	}
}

func TestDump(t *testing.T) {
	c := build(t, baseLayers())

	got := c.Dump(rules.Context{Path: "test/a.js"})
	if len(got) != 2 {
		t.Fatalf("Dump() returned %d rules, want 2: %v", len(got), got)
	}
	if got["max-len"].Source != "tests" {
		t.Errorf("Dump()[max-len].Source = %q, want tests", got["max-len"].Source)
	}
	if _, ok := got["no-console"]; ok {
		t.Error("Dump() includes no-console outside the ci env")
	}

	withEnv := c.Dump(rules.Context{Path: "test/a.js", Env: "ci"})
	if len(withEnv) != 3 {
		t.Errorf("Dump(ci) returned %d rules, want 3", len(withEnv))
	}
}

func TestEqualAndFingerprint(t *testing.T) {
	a := build(t, baseLayers())
	b := build(t, baseLayers())

	if a.Generation() == b.Generation() {
		t.Errorf("generations are equal: %d", a.Generation())
	}
	if b.Generation() <= a.Generation() {
		t.Errorf("generation did not increase: %d then %d", a.Generation(), b.Generation())
	}
	if !a.Equal(b) {
		t.Error("Equal() = false for cascades of the same layers")
	}
	if a.Fingerprint() != b.Fingerprint() {
		t.Errorf("Fingerprint() differs: %s vs %s", a.Fingerprint(), b.Fingerprint())
	}

	changed := baseLayers()
	changed[0] = layer("base", 0, 0, rules.Scope{}, map[rules.RuleID]rules.Setting{
		"semi":    rules.MustSetting(rules.Error, "never"),
		"max-len": rules.MustSetting(rules.Warn, map[string]any{"code": 80}),
	})
	c := build(t, changed)
	if a.Equal(c) {
		t.Error("Equal() = true for cascades with different options")
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("Fingerprint() equal for cascades with different options")
	}
}

func TestBlocksAreCopies(t *testing.T) {
	c := build(t, baseLayers())

	blocks := c.Blocks()
	if len(blocks) != 4 || blocks[0].Name != "base" {
		t.Fatalf("Blocks() = %d blocks starting at %q", len(blocks), blocks[0].Name)
	}
	blocks[0].Settings["semi"] = rules.MustSetting(rules.Warn)

	if s := c.Blocks()[0].Settings["semi"]; s.Severity != rules.Error {
		t.Errorf("block setting after mutation = %v, want error", s.Severity)
	}
}

type countingObserver struct {
	mu          sync.Mutex
	hits        int
	misses      int
	invalidated int
}

func (o *countingObserver) CacheHit() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hits++
}

func (o *countingObserver) CacheMiss() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.misses++
}

func (o *countingObserver) CacheInvalidated(int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.invalidated++
}

func (o *countingObserver) CacheEvicted() {}

func (o *countingObserver) CacheEntries(int) {}

func TestCacheMemoizes(t *testing.T) {
	obs := &countingObserver{}
	cache := NewCache(16, obs)
	c := build(t, baseLayers())
	ctx := rules.Context{Path: "src/a.js"}

	first, ok1 := cache.Resolve(c, "semi", ctx)
	second, ok2 := cache.Resolve(c, "semi", ctx)
	if !ok1 || !ok2 {
		t.Fatal("Resolve(semi) ok = false")
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("cached result %+v differs from %+v", second, first)
	}

	// NotConfigured is memoized too.
	cache.Resolve(c, "eqeqeq", ctx)
	if _, ok := cache.Resolve(c, "eqeqeq", ctx); ok {
		t.Error("Resolve(eqeqeq) ok = true")
	}

	stats := cache.Stats()
	if stats.Hits != 2 || stats.Misses != 2 {
		t.Errorf("stats = %+v, want 2 hits and 2 misses", stats)
	}
	if obs.hits != 2 || obs.misses != 2 {
		t.Errorf("observer saw %d hits and %d misses, want 2 and 2", obs.hits, obs.misses)
	}
	if cache.Len() != 2 {
		t.Errorf("Len() = %d, want 2", cache.Len())
	}
}

func TestCacheKeyIncludesPathAndEnv(t *testing.T) {
	cache := NewCache(0, nil)
	c := build(t, baseLayers())

	a, _ := cache.Resolve(c, "max-len", rules.Context{Path: "src/a.js"})
	b, _ := cache.Resolve(c, "max-len", rules.Context{Path: "test/a.js"})
	if a.Source == b.Source {
		t.Errorf("both paths resolved from %q", a.Source)
	}
	if _, ok := cache.Resolve(c, "no-console", rules.Context{Path: "src/a.js", Env: "ci"}); !ok {
		t.Error("Resolve(no-console, ci) ok = false")
	}
	if _, ok := cache.Resolve(c, "no-console", rules.Context{Path: "src/a.js"}); ok {
		t.Error("Resolve(no-console) ok = true without env")
	}
}

func TestCacheGenerationInvalidation(t *testing.T) {
	obs := &countingObserver{}
	cache := NewCache(16, obs)
	ctx := rules.Context{Path: "src/a.js"}

	old := build(t, baseLayers())
	cache.Resolve(old, "semi", ctx)
	cache.Resolve(old, "max-len", ctx)

	changed := baseLayers()
	changed[1] = layer("team", 1, 0, rules.Scope{}, map[rules.RuleID]rules.Setting{
		"semi": rules.MustSetting(rules.Warn),
	})
	next := build(t, changed)

	res, _ := cache.Resolve(next, "semi", ctx)
	if res.Severity != rules.Warn {
		t.Errorf("Resolve after new generation = %v, want warn", res.Severity)
	}
	if cache.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after invalidation", cache.Len())
	}
	if cache.Generation() != next.Generation() {
		t.Errorf("Generation() = %d, want %d", cache.Generation(), next.Generation())
	}

	// A lookup against the older cascade does not roll the cache back and
	// never sees the newer entries.
	res, _ = cache.Resolve(old, "semi", ctx)
	if res.Severity != rules.Off {
		t.Errorf("Resolve(old) = %v, want off", res.Severity)
	}
	if cache.Generation() != next.Generation() {
		t.Errorf("Generation() rolled back to %d", cache.Generation())
	}
}

func TestCacheEviction(t *testing.T) {
	cache := NewCache(2, nil)
	c := build(t, baseLayers())

	for i := 0; i < 5; i++ {
		cache.Resolve(c, "semi", rules.Context{Path: fmt.Sprintf("src/%d.js", i)})
	}
	if cache.Len() != 2 {
		t.Errorf("Len() = %d, want 2", cache.Len())
	}
}

func TestResolverSwap(t *testing.T) {
	r := NewResolver(NewCache(64, nil))
	ctx := rules.Context{Path: "src/a.js"}

	if _, ok := r.Resolve("semi", ctx); ok {
		t.Error("Resolve() before Swap ok = true")
	}
	if got := r.Dump(ctx); len(got) != 0 {
		t.Errorf("Dump() before Swap = %v", got)
	}

	first := build(t, baseLayers())
	if prev := r.Swap(first); prev != nil {
		t.Errorf("first Swap returned %v, want nil", prev)
	}
	if res, _ := r.Resolve("semi", ctx); res.Severity != rules.Off {
		t.Errorf("Resolve(semi) = %v, want off", res.Severity)
	}

	second := build(t, []*rules.Layer{
		layer("only", 0, 0, rules.Scope{}, map[rules.RuleID]rules.Setting{"semi": rules.MustSetting(rules.Error)}),
	})
	if prev := r.Swap(second); prev != first {
		t.Error("Swap did not return the previous cascade")
	}
	res, _ := r.Resolve("semi", ctx)
	if res.Severity != rules.Error || res.Source != "only" {
		t.Errorf("Resolve(semi) after Swap = %v from %q, want error from only", res.Severity, res.Source)
	}
	if r.Current() != second {
		t.Error("Current() is not the swapped cascade")
	}
}

func TestResolverConcurrent(t *testing.T) {
	r := NewResolver(NewCache(32, nil))
	r.Swap(build(t, baseLayers()))

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				ctx := rules.Context{Path: fmt.Sprintf("src/%d.js", i%10)}
				if _, ok := r.Resolve("semi", ctx); !ok {
					t.Errorf("Resolve(semi) ok = false")
					return
				}
				if g == 0 && i%50 == 0 {
					next, err := New(baseLayers())
					if err != nil {
						t.Errorf("New() error = %v", err)
						return
					}
					r.Swap(next)
				}
			}
		}(g)
	}
	wg.Wait()
}

func BenchmarkCacheResolve(b *testing.B) {
	cache := NewCache(1024, nil)
	c := build(b, baseLayers())
	ctx := rules.Context{Path: "test/unit/a.js"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Resolve(c, "max-len", ctx)
	}
}
