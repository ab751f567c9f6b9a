package config

import "time"

// Config is the root configuration structure for the cascade command.
type Config struct {
	// Catalog selects the rule catalogs settings are validated against.
	Catalog CatalogConfig `yaml:"catalog"`

	// Stack lists the stack documents to compose and controls hot reload.
	Stack StackConfig `yaml:"stack"`

	// Cache controls the resolution cache.
	Cache CacheConfig `yaml:"cache"`

	// Audit controls the composition audit trail.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry contains logging, metrics and tracing configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// CatalogConfig selects rule catalogs.
type CatalogConfig struct {
	// Paths are YAML catalog documents, merged in order. Later documents
	// replace earlier schemas of the same rule.
	Paths []string `yaml:"paths"`

	// DisablePresets drops the catalog of the built-in preset rules.
	// Default: false
	DisablePresets bool `yaml:"disable_presets"`
}

// StackConfig describes where layers come from.
type StackConfig struct {
	// Paths are stack documents (.yaml, .yml, .toml or .cue). Their layers
	// are concatenated in order.
	Paths []string `yaml:"paths"`

	// Env is the environment tag used when a query names none.
	Env string `yaml:"env"`

	// Watch enables hot reload of the stack documents.
	// Default: false
	Watch bool `yaml:"watch"`

	// Debounce is the quiet period after a file change before reloading.
	// Default: 100ms
	Debounce time.Duration `yaml:"debounce"`

	// MaxIncludeDepth bounds nested include chains.
	// Default: 8
	MaxIncludeDepth int `yaml:"max_include_depth"`
}

// CacheConfig controls the resolution cache.
type CacheConfig struct {
	// Disabled turns memoization off.
	// Default: false
	Disabled bool `yaml:"disabled"`

	// MaxEntries bounds the number of cached results.
	// Default: 4096
	MaxEntries int `yaml:"max_entries"`
}

// AuditConfig controls the composition audit trail.
type AuditConfig struct {
	// Enabled records every composition in a SQLite database.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Driver is the database/sql driver: "sqlite" (pure Go) or "sqlite3"
	// (cgo).
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// Path is the database file.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long a writer waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// Retention controls pruning of old records.
	Retention RetentionConfig `yaml:"retention"`
}

// RetentionConfig controls pruning of audit records.
type RetentionConfig struct {
	// Days is how long records are kept. 0 keeps them forever.
	// Default: 30
	Days int `yaml:"days"`

	// Schedule is the cron expression for pruning runs.
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "console"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are recorded.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// ListenAddress is where watch mode serves the metrics endpoint.
	// Default: "127.0.0.1:9464"
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "cascade"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: ""
	Subsystem string `yaml:"subsystem"`

	// DurationBuckets defines histogram buckets for composition duration
	// (seconds).
	// Default: [0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5]
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are recorded.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio". Reload traces are always kept;
	// the ratio applies to the probe requests of the watch listener.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Exporter selects the span exporter.
	// Options: "otlp", "none"
	// Default: "none"
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP gRPC collector address.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS for the OTLP connection.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// ServiceName is the service name in traces.
	// Default: "cascade"
	ServiceName string `yaml:"service_name"`
}
