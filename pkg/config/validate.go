package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "audit.driver").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// Validate validates the entire configuration. All errors are collected and
// returned together as a ValidationError; nil means the configuration is
// valid.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateCatalog(&cfg.Catalog)...)
	errs = append(errs, validateStack(&cfg.Stack)...)
	errs = append(errs, validateCache(&cfg.Cache)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateCatalog(cfg *CatalogConfig) []FieldError {
	var errs []FieldError
	for i, p := range cfg.Paths {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("catalog.paths[%d]", i), Message: "path cannot be empty"})
		}
	}
	if cfg.DisablePresets && len(cfg.Paths) == 0 {
		errs = append(errs, FieldError{
			Field:   "catalog.paths",
			Message: "at least one catalog is required when presets are disabled",
		})
	}
	return errs
}

// stackExtensions are the document formats the loader understands.
var stackExtensions = map[string]bool{".yaml": true, ".yml": true, ".toml": true, ".cue": true}

func validateStack(cfg *StackConfig) []FieldError {
	var errs []FieldError

	for i, p := range cfg.Paths {
		field := fmt.Sprintf("stack.paths[%d]", i)
		if strings.TrimSpace(p) == "" {
			errs = append(errs, FieldError{Field: field, Message: "path cannot be empty"})
			continue
		}
		if ext := strings.ToLower(filepath.Ext(p)); !stackExtensions[ext] {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("unsupported document format %q (must be .yaml, .yml, .toml or .cue)", ext),
			})
		}
	}

	if cfg.Watch && len(cfg.Paths) == 0 {
		errs = append(errs, FieldError{Field: "stack.watch", Message: "watch requires at least one stack path"})
	}
	if cfg.Debounce < 0 {
		errs = append(errs, FieldError{Field: "stack.debounce", Message: "must be non-negative"})
	}
	if cfg.MaxIncludeDepth < 1 {
		errs = append(errs, FieldError{Field: "stack.max_include_depth", Message: "must be at least 1"})
	}
	return errs
}

func validateCache(cfg *CacheConfig) []FieldError {
	if cfg.MaxEntries < 0 {
		return []FieldError{{Field: "cache.max_entries", Message: "must be non-negative"}}
	}
	return nil
}

func validateAudit(cfg *AuditConfig) []FieldError {
	if !cfg.Enabled {
		return nil
	}

	var errs []FieldError
	switch cfg.Driver {
	case "sqlite", "sqlite3":
	default:
		errs = append(errs, FieldError{
			Field:   "audit.driver",
			Message: fmt.Sprintf("unsupported driver %q (must be sqlite or sqlite3)", cfg.Driver),
		})
	}
	if cfg.Path == "" {
		errs = append(errs, FieldError{Field: "audit.path", Message: "path is required when audit is enabled"})
	}
	if cfg.BusyTimeout < 0 {
		errs = append(errs, FieldError{Field: "audit.busy_timeout", Message: "must be non-negative"})
	}
	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{Field: "audit.retention.days", Message: "must be non-negative"})
	}
	if cfg.Retention.Days > 0 {
		if _, err := cron.ParseStandard(cfg.Retention.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "audit.retention.schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}
	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("unknown level %q (must be debug, info, warn or error)", cfg.Logging.Level),
		})
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text", "console":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("unknown format %q (must be json, text or console)", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled {
		if _, _, err := net.SplitHostPort(cfg.Metrics.ListenAddress); err != nil {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.listen_address",
				Message: fmt.Sprintf("invalid address %q: %v", cfg.Metrics.ListenAddress, err),
			})
		}
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "must start with /"})
		}
	}
	for i := 1; i < len(cfg.Metrics.DurationBuckets); i++ {
		if cfg.Metrics.DurationBuckets[i] <= cfg.Metrics.DurationBuckets[i-1] {
			errs = append(errs, FieldError{Field: "telemetry.metrics.duration_buckets", Message: "buckets must be strictly increasing"})
			break
		}
	}

	if cfg.Tracing.Enabled {
		switch cfg.Tracing.Sampler {
		case "always", "never", "ratio":
		default:
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("unknown sampler %q (must be always, never or ratio)", cfg.Tracing.Sampler),
			})
		}
		if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
			errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "must be between 0.0 and 1.0"})
		}
		switch cfg.Tracing.Exporter {
		case "none":
		case "otlp":
			if cfg.Tracing.Endpoint == "" {
				errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "endpoint is required for the otlp exporter"})
			}
		default:
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.exporter",
				Message: fmt.Sprintf("unknown exporter %q (must be otlp or none)", cfg.Tracing.Exporter),
			})
		}
	}
	return errs
}
