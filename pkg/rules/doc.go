// Package rules defines the data model shared by every stage of rule
// composition: rule identifiers, severities, option values, settings, scopes
// and the immutable RuleLayer.
//
// # Settings
//
// A Setting is the atomic unit a layer assigns to a rule: one Severity and an
// ordered sequence of option values. A layer never patches part of a setting;
// a later layer that mentions the same rule replaces the whole thing.
//
// # Option Values
//
// Options are JSON-like values. Every value entering the model is passed
// through NormalizeValue, which maps the number types produced by the various
// decoders (YAML, TOML, CUE, JSON) onto int64 and float64 and rejects anything
// that is not a scalar, a sequence or a string-keyed mapping. Values are never
// coerced between kinds; "80" stays a string.
//
// # Scopes
//
// A Scope restricts a layer to a set of path globs and environment tags. An
// empty Scope matches every input. Globs use doublestar syntax so "**/*.test.js"
// matches test files at any depth:
//
//	scope := rules.Scope{Globs: []string{"**/*.test.js"}}
//	scope.Matches(rules.Context{Path: "src/app.test.js"}) // true
//
// # Layers
//
// NewLayer deep-copies everything it is given. The returned *Layer has no
// mutating methods and can be shared freely between goroutines.
package rules
