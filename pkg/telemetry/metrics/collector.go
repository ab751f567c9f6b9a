package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/cascade/pkg/compose"
	"mercator-hq/cascade/pkg/config"
)

// Collector owns every cascade metric and the registry they live in.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	compositionMetrics *CompositionMetrics
	cacheMetrics       *CacheMetrics
	reloadMetrics      *ReloadMetrics
}

// NewCollector creates a collector and registers its metrics. If registry is
// nil a fresh registry is created. Missing namespace and buckets are
// defaulted.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg == nil {
		cfg = &config.MetricsConfig{Enabled: true}
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = append([]float64(nil), config.DefaultDurationBuckets...)
	}

	return &Collector{
		config:             cfg,
		registry:           registry,
		compositionMetrics: NewCompositionMetrics(cfg, registry),
		cacheMetrics:       NewCacheMetrics(cfg, registry),
		reloadMetrics:      NewReloadMetrics(cfg, registry),
	}
}

// Enabled reports whether the collector records anything.
func (c *Collector) Enabled() bool {
	return c.config.Enabled
}

// RecordComposition implements compose.Recorder.
func (c *Collector) RecordComposition(report compose.Report) {
	if !c.config.Enabled {
		return
	}
	c.compositionMetrics.Record(report)
}

// RecordReload records one hot-reload attempt.
//
// Parameters:
//   - outcome: "success", "failure" or "unchanged"
//   - duration: time spent loading and composing
func (c *Collector) RecordReload(outcome string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.reloadMetrics.Record(outcome, duration)
}

// CacheObserver returns an observer that reports the events of one
// resolution cache under the given name.
func (c *Collector) CacheObserver(name string) *CacheObserver {
	return &CacheObserver{name: name, enabled: c.config.Enabled, metrics: c.cacheMetrics}
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
