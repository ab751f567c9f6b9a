package tracing

import (
	"fmt"
	"strings"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Sampling strategies accepted in TracingConfig.Sampler.
const (
	SamplerAlways = "always"
	SamplerNever  = "never"
	SamplerRatio  = "ratio"
)

// Span names shared by the source manager and the sampler.
const (
	SpanReload  = "source.reload"
	SpanLoad    = "source.load"
	SpanCompose = "compose"
)

// createSampler builds the sampler for strategy, wrapped in ParentBased so
// load and compose spans follow their reload. Under the ratio strategy a
// reload is sampled regardless of the ratio.
func createSampler(strategy string, ratio float64) (sdktrace.Sampler, error) {
	var root sdktrace.Sampler

	switch strategy {
	case SamplerAlways, "":
		root = sdktrace.AlwaysSample()
	case SamplerNever:
		root = sdktrace.NeverSample()
	case SamplerRatio:
		if ratio < 0.0 || ratio > 1.0 {
			return nil, fmt.Errorf("sample ratio must be between 0.0 and 1.0, got %f", ratio)
		}
		root = keepReloads{probes: sdktrace.TraceIDRatioBased(ratio)}
	default:
		return nil, fmt.Errorf("unknown sampler strategy: %s (valid: always, never, ratio)", strategy)
	}

	return sdktrace.ParentBased(root), nil
}

// keepReloads samples every reload root span and leaves every other root
// span, in practice HTTP probes, to the probes sampler.
type keepReloads struct {
	probes sdktrace.Sampler
}

func (s keepReloads) ShouldSample(p sdktrace.SamplingParameters) sdktrace.SamplingResult {
	if strings.HasPrefix(p.Name, SpanReload) {
		return sdktrace.AlwaysSample().ShouldSample(p)
	}
	return s.probes.ShouldSample(p)
}

func (s keepReloads) Description() string {
	return fmt.Sprintf("KeepReloads{%s}", s.probes.Description())
}
