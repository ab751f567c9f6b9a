// Package source loads layer stacks from documents on disk and keeps a
// resolver up to date as they change.
//
// A stack document is YAML, TOML or CUE, picked by file extension:
//
//	include:
//	  - base.yaml
//	layers:
//	  - preset: possible-problems
//	    tier: 0
//	  - name: web
//	    tier: 1
//	    scope:
//	      globs: ["web/**"]
//	      envs: [browser]
//	    rules:
//	      no-console: error
//	      max-len: [warn, {code: 120}]
//
// A rule setting is a severity or a list of a severity followed by options.
// A layer that names a preset starts from the preset's rules; its own rules
// replace individual entries. Include paths are relative to the including
// file and their layers come first. Order defaults to the layer's index in
// its document.
//
// Manager ties a Loader to a compose.Engine and a cascade.Resolver. Reload
// composes the documents again and swaps the new cascade in; on failure the
// previous one stays installed. Watch reloads on file changes.
package source
