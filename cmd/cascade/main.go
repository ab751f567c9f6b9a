// Cascade composes layered lint rule configuration and answers which
// setting applies to a file.
//
// A stack is a set of YAML, TOML or CUE documents declaring layers. Each
// layer sits in a precedence tier and may be scoped to path globs and
// environments. Settings are validated against a rule catalog, same-tier
// conflicts are rejected, and the composed cascade resolves every rule for
// a given input.
//
// Usage:
//
//	# Validate a stack
//	cascade check stack.yaml
//
//	# Which setting of "semi" applies to a file?
//	cascade resolve --rule semi --path src/app.ts stack.yaml
//
//	# Every effective rule for a file, as JSON
//	cascade dump --path src/app.ts --format json stack.yaml
//
//	# Recompose on every change and serve probes and metrics
//	cascade watch --config cascade.yaml
package main

func main() {
	Execute()
}
