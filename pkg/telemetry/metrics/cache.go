package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/cascade/pkg/config"
)

// CacheMetrics tracks resolution cache performance, labelled by cache name.
type CacheMetrics struct {
	hitsTotal          *prometheus.CounterVec
	missesTotal        *prometheus.CounterVec
	evictionsTotal     *prometheus.CounterVec
	invalidationsTotal *prometheus.CounterVec
	entries            *prometheus.GaugeVec
}

// NewCacheMetrics creates and registers cache metrics with the provided registry.
func NewCacheMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CacheMetrics {
	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      name,
				Help:      help,
			},
			[]string{"cache"},
		)
	}

	cm := &CacheMetrics{
		hitsTotal:          counter("cache_hits_total", "Total number of resolution cache hits"),
		missesTotal:        counter("cache_misses_total", "Total number of resolution cache misses"),
		evictionsTotal:     counter("cache_evictions_total", "Total number of entries evicted by the size bound"),
		invalidationsTotal: counter("cache_invalidations_total", "Total number of whole-cache invalidations on generation change"),
		entries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_entries",
				Help:      "Current number of entries in the resolution cache",
			},
			[]string{"cache"},
		),
	}

	registry.MustRegister(
		cm.hitsTotal,
		cm.missesTotal,
		cm.evictionsTotal,
		cm.invalidationsTotal,
		cm.entries,
	)

	return cm
}

// CacheObserver reports the events of one named cache. It satisfies
// cascade.CacheObserver.
type CacheObserver struct {
	name    string
	enabled bool
	metrics *CacheMetrics
}

// CacheHit records a hit.
func (o *CacheObserver) CacheHit() {
	if o.enabled {
		o.metrics.hitsTotal.WithLabelValues(o.name).Inc()
	}
}

// CacheMiss records a miss.
func (o *CacheObserver) CacheMiss() {
	if o.enabled {
		o.metrics.missesTotal.WithLabelValues(o.name).Inc()
	}
}

// CacheEvicted records an eviction.
func (o *CacheObserver) CacheEvicted() {
	if o.enabled {
		o.metrics.evictionsTotal.WithLabelValues(o.name).Inc()
	}
}

// CacheInvalidated records a whole-cache invalidation.
func (o *CacheObserver) CacheInvalidated(int) {
	if o.enabled {
		o.metrics.invalidationsTotal.WithLabelValues(o.name).Inc()
	}
}

// CacheEntries records the current entry count.
func (o *CacheObserver) CacheEntries(n int) {
	if o.enabled {
		o.metrics.entries.WithLabelValues(o.name).Set(float64(n))
	}
}
