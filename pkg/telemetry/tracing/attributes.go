package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/cascade/pkg/compose"
)

// Attribute keys used on cascade spans.
const (
	AttrStackPaths         = "cascade.stack.paths"
	AttrLayers             = "cascade.layers"
	AttrRules              = "cascade.rules"
	AttrOutcome            = "cascade.outcome"
	AttrGeneration         = "cascade.generation"
	AttrPreviousGeneration = "cascade.previous_generation"
	AttrFingerprint        = "cascade.fingerprint"
	AttrDiagnostics        = "cascade.diagnostics"
	AttrReloadID           = "cascade.reload_id"
)

// SetCompositionAttributes copies a composition report onto span.
func SetCompositionAttributes(span trace.Span, r compose.Report) {
	total := 0
	for _, n := range r.Diagnostics {
		total += n
	}

	attrs := []attribute.KeyValue{
		attribute.String(AttrOutcome, string(r.Outcome)),
		attribute.Int(AttrLayers, r.Layers),
		attribute.Int(AttrRules, r.Rules),
		attribute.Int(AttrDiagnostics, total),
	}
	if r.Outcome == compose.OutcomeSuccess {
		attrs = append(attrs,
			attribute.Int64(AttrGeneration, int64(r.Generation)),
			attribute.String(AttrFingerprint, r.Fingerprint),
		)
	}
	span.SetAttributes(attrs...)
}

// SetStackAttributes records the documents a stack was loaded from.
func SetStackAttributes(span trace.Span, paths []string) {
	span.SetAttributes(attribute.StringSlice(AttrStackPaths, paths))
}
