package config

import "time"

// Default values for configuration fields.
const (
	// Stack defaults
	DefaultStackDebounce        = 100 * time.Millisecond
	DefaultStackMaxIncludeDepth = 8

	// Cache defaults
	DefaultCacheMaxEntries = 4096

	// Audit defaults
	DefaultAuditDriver            = "sqlite"
	DefaultAuditPath              = "data/audit.db"
	DefaultAuditBusyTimeout       = 5 * time.Second
	DefaultAuditRetentionDays     = 30
	DefaultAuditRetentionSchedule = "0 3 * * *"

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"

	// Metrics defaults
	DefaultMetricsListenAddress = "127.0.0.1:9464"
	DefaultMetricsPath          = "/metrics"
	DefaultMetricsNamespace     = "cascade"

	// Tracing defaults
	DefaultTracingSampler     = "always"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingExporter    = "none"
	DefaultTracingTimeout     = 10 * time.Second
	DefaultTracingServiceName = "cascade"
)

// DefaultDurationBuckets are the composition duration histogram buckets.
var DefaultDurationBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5}

// ApplyDefaults fills zero-valued fields with their defaults. Fields that
// are already set are left alone.
func ApplyDefaults(cfg *Config) {
	// Stack defaults
	if cfg.Stack.Debounce == 0 {
		cfg.Stack.Debounce = DefaultStackDebounce
	}
	if cfg.Stack.MaxIncludeDepth == 0 {
		cfg.Stack.MaxIncludeDepth = DefaultStackMaxIncludeDepth
	}

	// Cache defaults
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = DefaultCacheMaxEntries
	}

	// Audit defaults
	if cfg.Audit.Driver == "" {
		cfg.Audit.Driver = DefaultAuditDriver
	}
	if cfg.Audit.Path == "" {
		cfg.Audit.Path = DefaultAuditPath
	}
	if cfg.Audit.BusyTimeout == 0 {
		cfg.Audit.BusyTimeout = DefaultAuditBusyTimeout
	}
	if cfg.Audit.Retention.Days == 0 {
		cfg.Audit.Retention.Days = DefaultAuditRetentionDays
	}
	if cfg.Audit.Retention.Schedule == "" {
		cfg.Audit.Retention.Schedule = DefaultAuditRetentionSchedule
	}

	// Logging defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}

	// Metrics defaults
	m := &cfg.Telemetry.Metrics
	if m.ListenAddress == "" {
		m.ListenAddress = DefaultMetricsListenAddress
	}
	if m.Path == "" {
		m.Path = DefaultMetricsPath
	}
	if m.Namespace == "" {
		m.Namespace = DefaultMetricsNamespace
	}
	if len(m.DurationBuckets) == 0 {
		m.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}

	// Tracing defaults
	tr := &cfg.Telemetry.Tracing
	if tr.Sampler == "" {
		tr.Sampler = DefaultTracingSampler
	}
	if tr.SampleRatio == 0 && tr.Sampler != "ratio" {
		tr.SampleRatio = DefaultTracingSampleRatio
	}
	if tr.Exporter == "" {
		tr.Exporter = DefaultTracingExporter
	}
	if tr.Timeout == 0 {
		tr.Timeout = DefaultTracingTimeout
	}
	if tr.ServiceName == "" {
		tr.ServiceName = DefaultTracingServiceName
	}
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
