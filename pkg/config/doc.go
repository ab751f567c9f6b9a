// Package config loads the configuration of the cascade command.
//
// Configuration is read from a YAML file, completed with defaults,
// optionally overridden from the environment and validated as a whole:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("cascade.yaml")
//	if err != nil {
//	    return err
//	}
//
// A minimal file names the stack documents to compose:
//
//	stack:
//	  paths: [cascade.yaml]
//	catalog:
//	  paths: [rules/catalog.yaml]
//
// Environment variables follow CASCADE_SECTION_FIELD, for example
// CASCADE_STACK_WATCH=true or CASCADE_TELEMETRY_LOGGING_LEVEL=debug. They
// always win over the file.
//
// Commands call Install instead, which also applies command-line overrides
// on top of the environment and makes the result available to GetConfig.
//
// Validation collects every problem before returning, as a ValidationError
// listing one FieldError per offending field.
package config
