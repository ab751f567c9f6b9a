// Package catalog provides the authoritative registry of rules and their
// option schemas.
//
// The composition engine depends only on the narrow Catalog interface, so
// alternate or plugin-supplied catalogs can be substituted:
//
//	type Catalog interface {
//	    Lookup(id rules.RuleID) (*Schema, bool)
//	    Validate(id rules.RuleID, setting rules.Setting) error
//	}
//
// Registry is the in-memory implementation. It is filled once at startup,
// either programmatically with Register or from a YAML document:
//
//	version: "2024.1"
//	rules:
//	  max-len:
//	    description: Enforce a maximum line length
//	    options:
//	      - type: object
//	        properties:
//	          code: {type: integer, minimum: 1}
//	          ignoreUrls: {type: boolean}
//
// # Validation
//
// Validate checks that the severity is accepted by the rule, that the number
// of options fits the schema arity and that every option matches its
// positional OptionSpec (type, enum membership, bounds, nested object shape).
// Values are never cast: the string "80" does not satisfy an integer option.
// Every violation is reported with a path such as "options[0].code".
package catalog
