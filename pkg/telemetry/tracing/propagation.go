package tracing

import (
	"go.opentelemetry.io/otel/propagation"
)

// Propagator returns the W3C propagator (traceparent, tracestate and
// baggage headers) used by the watch listener. A probe sent with a
// traceparent header joins the caller's trace.
func Propagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}
