package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CASCADE_"

// Parse decodes a YAML configuration, applies defaults and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values and validates the result. Environment variables
// are not consulted; use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides named CASCADE_SECTION_FIELD (for example
// CASCADE_AUDIT_PATH). An empty path starts from the defaults.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := applyEnvOverrides(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

type lookupFunc func(key string) (string, bool)

// applyEnvOverrides applies environment variable overrides. Unparseable
// values are reported as a ValidationError rather than ignored.
func applyEnvOverrides(cfg *Config, lookup lookupFunc) error {
	o := &overrider{lookup: lookup}

	// Catalog overrides
	o.setList("CATALOG_PATHS", &cfg.Catalog.Paths)
	o.setBool("CATALOG_DISABLE_PRESETS", &cfg.Catalog.DisablePresets)

	// Stack overrides
	o.setList("STACK_PATHS", &cfg.Stack.Paths)
	o.setString("STACK_ENV", &cfg.Stack.Env)
	o.setBool("STACK_WATCH", &cfg.Stack.Watch)
	o.setDuration("STACK_DEBOUNCE", &cfg.Stack.Debounce)
	o.setInt("STACK_MAX_INCLUDE_DEPTH", &cfg.Stack.MaxIncludeDepth)

	// Cache overrides
	o.setBool("CACHE_DISABLED", &cfg.Cache.Disabled)
	o.setInt("CACHE_MAX_ENTRIES", &cfg.Cache.MaxEntries)

	// Audit overrides
	o.setBool("AUDIT_ENABLED", &cfg.Audit.Enabled)
	o.setString("AUDIT_DRIVER", &cfg.Audit.Driver)
	o.setString("AUDIT_PATH", &cfg.Audit.Path)
	o.setDuration("AUDIT_BUSY_TIMEOUT", &cfg.Audit.BusyTimeout)
	o.setInt("AUDIT_RETENTION_DAYS", &cfg.Audit.Retention.Days)
	o.setString("AUDIT_RETENTION_SCHEDULE", &cfg.Audit.Retention.Schedule)

	// Telemetry overrides
	o.setString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	o.setString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	o.setBool("TELEMETRY_LOGGING_ADD_SOURCE", &cfg.Telemetry.Logging.AddSource)
	o.setBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	o.setString("TELEMETRY_METRICS_LISTEN_ADDRESS", &cfg.Telemetry.Metrics.ListenAddress)
	o.setString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	o.setBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	o.setString("TELEMETRY_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)
	o.setFloat("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
	o.setString("TELEMETRY_TRACING_EXPORTER", &cfg.Telemetry.Tracing.Exporter)
	o.setString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	o.setBool("TELEMETRY_TRACING_INSECURE", &cfg.Telemetry.Tracing.Insecure)

	if len(o.errs) > 0 {
		return ValidationError{Errors: o.errs}
	}
	return nil
}

type overrider struct {
	lookup lookupFunc
	errs   []FieldError
}

func (o *overrider) get(key string) (string, bool) {
	val, ok := o.lookup(EnvPrefix + key)
	if !ok || val == "" {
		return "", false
	}
	return val, true
}

func (o *overrider) fail(key, val, kind string) {
	o.errs = append(o.errs, FieldError{
		Field:   EnvPrefix + key,
		Message: fmt.Sprintf("cannot parse %q as %s", val, kind),
	})
}

func (o *overrider) setString(key string, dst *string) {
	if val, ok := o.get(key); ok {
		*dst = val
	}
}

// setList splits a comma-separated value.
func (o *overrider) setList(key string, dst *[]string) {
	val, ok := o.get(key)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func (o *overrider) setBool(key string, dst *bool) {
	if val, ok := o.get(key); ok {
		b, err := strconv.ParseBool(val)
		if err != nil {
			o.fail(key, val, "a boolean")
			return
		}
		*dst = b
	}
}

func (o *overrider) setInt(key string, dst *int) {
	if val, ok := o.get(key); ok {
		i, err := strconv.Atoi(val)
		if err != nil {
			o.fail(key, val, "an integer")
			return
		}
		*dst = i
	}
}

func (o *overrider) setFloat(key string, dst *float64) {
	if val, ok := o.get(key); ok {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			o.fail(key, val, "a number")
			return
		}
		*dst = f
	}
}

func (o *overrider) setDuration(key string, dst *time.Duration) {
	if val, ok := o.get(key); ok {
		d, err := time.ParseDuration(val)
		if err != nil {
			o.fail(key, val, "a duration")
			return
		}
		*dst = d
	}
}
