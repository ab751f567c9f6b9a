// Package tracing sets up OpenTelemetry tracing for stack loading and
// composition.
//
// Spans are produced by the source package around every load, compose and
// reload. This package builds the tracer provider they go to: a sampler
// ("always", "never" or "ratio", each parent-based) and an exporter, which is
// either OTLP over gRPC or none at all.
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	mgr := source.NewManager(loader, engine, source.ManagerOptions{Tracer: tracer.Tracer()})
//
// When tracing is disabled the returned tracer is a no-op.
package tracing
