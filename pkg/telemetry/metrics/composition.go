package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/cascade/pkg/compose"
	"mercator-hq/cascade/pkg/config"
)

// CompositionMetrics tracks composition outcomes.
type CompositionMetrics struct {
	compositionsTotal   *prometheus.CounterVec
	compositionDuration *prometheus.HistogramVec
	diagnosticsTotal    *prometheus.CounterVec
	generation          prometheus.Gauge
	layers              prometheus.Gauge
}

// NewCompositionMetrics creates and registers composition metrics.
func NewCompositionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CompositionMetrics {
	cm := &CompositionMetrics{
		compositionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "compositions_total",
				Help:      "Total number of stack compositions",
			},
			[]string{"outcome"},
		),

		compositionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "composition_duration_seconds",
				Help:      "Duration of stack composition in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"outcome"},
		),

		diagnosticsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "composition_diagnostics_total",
				Help:      "Total number of composition diagnostics by kind",
			},
			[]string{"kind"},
		),

		generation: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "generation",
				Help:      "Generation of the last successfully composed cascade",
			},
		),

		layers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "layers",
				Help:      "Number of layers in the last successfully composed cascade",
			},
		),
	}

	registry.MustRegister(
		cm.compositionsTotal,
		cm.compositionDuration,
		cm.diagnosticsTotal,
		cm.generation,
		cm.layers,
	)

	return cm
}

// Record records one composition report.
func (cm *CompositionMetrics) Record(r compose.Report) {
	outcome := string(r.Outcome)
	cm.compositionsTotal.WithLabelValues(outcome).Inc()
	cm.compositionDuration.WithLabelValues(outcome).Observe(r.Duration.Seconds())

	for kind, n := range r.Diagnostics {
		cm.diagnosticsTotal.WithLabelValues(string(kind)).Add(float64(n))
	}

	if r.Outcome == compose.OutcomeSuccess {
		cm.generation.Set(float64(r.Generation))
		cm.layers.Set(float64(r.Layers))
	}
}
