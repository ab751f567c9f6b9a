// Package cascade holds the EffectiveCascade produced by composition and
// answers point queries against it.
//
// A Cascade is an immutable sequence of scoped blocks in ascending precedence
// order. Resolve walks it from the highest-precedence block down and returns
// the first block whose scope matches the input and which defines the rule;
// every lower matching block that also defines the rule is reported as
// shadowed:
//
//	res, ok := c.Resolve("max-len", rules.Context{Path: "src/app.test.js"})
//	if !ok {
//	    // NotConfigured: no layer sets max-len for this input.
//	}
//	fmt.Println(res.Severity, res.Source, res.Shadowed)
//
// # Generations and Caching
//
// Every Cascade carries a generation number from a process-wide counter
// that only increases. Cache memoizes Resolve results keyed by rule id and
// input, tagged with the generation they were computed for; the first lookup
// against a newer cascade drops every entry at once. Resolver pairs a Cache
// with an atomically swappable current Cascade for hot-reload.
//
// A Cascade is safe for unsynchronized concurrent reads.
package cascade
