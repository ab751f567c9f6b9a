// Package metrics exports Prometheus metrics for composition, resolution
// caching and hot reload.
//
// # Metrics
//
// Composition:
//   - cascade_compositions_total{outcome}: compositions by outcome
//   - cascade_composition_duration_seconds{outcome}: composition latency
//   - cascade_composition_diagnostics_total{kind}: diagnostics by kind
//   - cascade_generation: generation of the last successful cascade
//   - cascade_layers: layer count of the last successful cascade
//
// Cache (labelled by cache name):
//   - cascade_cache_hits_total, cascade_cache_misses_total
//   - cascade_cache_evictions_total, cascade_cache_invalidations_total
//   - cascade_cache_entries
//
// Reload:
//   - cascade_reloads_total{outcome}: watch-mode reloads by outcome
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	engine := compose.NewEngine(cat, &compose.Options{Recorder: collector})
//	cache := cascade.NewCache(4096, collector.CacheObserver("resolve"))
//	http.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// A disabled collector accepts every call and records nothing.
package metrics
