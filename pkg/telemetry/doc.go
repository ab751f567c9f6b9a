// Package telemetry groups the observability packages of the cascade
// composer.
//
// # Components
//
//   - logging: structured slog loggers carrying reload and trace ids
//   - metrics: Prometheus collectors for compositions, reloads and the
//     resolution cache
//   - tracing: OpenTelemetry spans around reloads and compositions
//   - health: liveness and readiness probes for the watch listener
//
// # Usage
//
//	cfg := config.GetConfig()
//
//	logger, err := logging.New(logging.Config{Level: cfg.Telemetry.Logging.Level})
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//
//	engine := compose.NewEngine(cat, &compose.Options{Recorder: collector})
//	manager, err := source.NewManager(loader, engine, paths, &source.ManagerOptions{
//		Logger:  logger.Component("source"),
//		Tracer:  tracer.Tracer(),
//		Metrics: collector,
//	})
//
// None of the subpackages is required: every consumer accepts a nil
// recorder, tracer or logger and falls back to a no-op or slog.Default().
package telemetry
