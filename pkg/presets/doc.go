// Package presets ships the built-in rule layers and a catalog that knows
// every rule they configure.
//
// The layers are embedded YAML documents:
//
//   - possible-problems: code that is likely to be a bug
//   - suggestions: alternate ways of doing things
//   - layout: formatting with 4-space indentation
//   - layout-compact: the same formatting rules with 2-space indentation
//   - simple-import-sort: import and export ordering (namespaced rules)
//
// A preset has no tier, order or scope of its own. Layer places it in a stack:
//
//	base, err := presets.Layer("possible-problems", 0, 0, rules.Scope{})
//	style, err := presets.Layer("layout", 1, 0, rules.Scope{Globs: []string{"src/**"}})
//
// layout and layout-compact configure the same rules, so both in one tier
// is a conflict; put the one that should win in a higher tier.
package presets
