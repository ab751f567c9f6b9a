package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/cascade/pkg/config"
)

// ReloadMetrics tracks watch-mode reloads.
type ReloadMetrics struct {
	reloadsTotal   *prometheus.CounterVec
	reloadDuration prometheus.Histogram
	lastReload     prometheus.Gauge
}

// NewReloadMetrics creates and registers reload metrics.
func NewReloadMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ReloadMetrics {
	rm := &ReloadMetrics{
		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "reloads_total",
				Help:      "Total number of stack reloads by outcome",
			},
			[]string{"outcome"},
		),

		reloadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "reload_duration_seconds",
				Help:      "Duration of stack reloads (load and compose) in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
			},
		),

		lastReload: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "last_reload_timestamp_seconds",
				Help:      "Unix time of the last successful reload",
			},
		),
	}

	registry.MustRegister(rm.reloadsTotal, rm.reloadDuration, rm.lastReload)
	return rm
}

// Record records one reload attempt.
func (rm *ReloadMetrics) Record(outcome string, duration time.Duration) {
	rm.reloadsTotal.WithLabelValues(outcome).Inc()
	rm.reloadDuration.Observe(duration.Seconds())
	if outcome == "success" {
		rm.lastReload.SetToCurrentTime()
	}
}
