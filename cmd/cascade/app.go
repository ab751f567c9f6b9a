package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/cascade/pkg/audit"
	"mercator-hq/cascade/pkg/cascade"
	"mercator-hq/cascade/pkg/catalog"
	"mercator-hq/cascade/pkg/cli"
	"mercator-hq/cascade/pkg/compose"
	"mercator-hq/cascade/pkg/config"
	"mercator-hq/cascade/pkg/presets"
	"mercator-hq/cascade/pkg/source"
	"mercator-hq/cascade/pkg/telemetry/logging"
	"mercator-hq/cascade/pkg/telemetry/metrics"
	"mercator-hq/cascade/pkg/telemetry/tracing"
)

// current is the state built by the root command before any subcommand runs.
var current *app

type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	printer *cli.Printer
}

func newApp(cfg *config.Config, printer *cli.Printer) (*app, error) {
	logger, err := logging.New(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
	})
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger.Slog())

	return &app{cfg: cfg, logger: logger, printer: printer}, nil
}

// stackPaths returns the documents named on the command line, or the
// configured ones.
func (a *app) stackPaths(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if len(a.cfg.Stack.Paths) > 0 {
		return a.cfg.Stack.Paths, nil
	}
	return nil, cli.NewExitError(cli.ExitUsage, fmt.Errorf("no stack documents given (pass them as arguments or set stack.paths)"))
}

// env returns flag, or the configured environment when flag is empty.
func (a *app) env(flag string) string {
	if flag != "" {
		return flag
	}
	return a.cfg.Stack.Env
}

// catalog builds the registry settings are validated against: the preset
// catalog unless disabled, then every configured catalog in order.
func (a *app) catalog() (*catalog.Registry, error) {
	reg := catalog.NewRegistry()
	if !a.cfg.Catalog.DisablePresets {
		if err := reg.Merge(presets.Catalog()); err != nil {
			return nil, err
		}
	}
	for _, path := range a.cfg.Catalog.Paths {
		extra, err := catalog.LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := reg.Merge(extra); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return reg, nil
}

// problems prints err and returns the silent error selecting the exit code
// for an invalid stack.
func (a *app) problems(err error) error {
	if perr := a.printer.Problems(err); perr != nil {
		return perr
	}
	return &cli.ExitError{Code: cli.ExitProblems, Err: err, Silent: true}
}

// pipeline holds the manager of one command and the resources it owns.
type pipeline struct {
	manager *source.Manager
	store   *audit.Store
	tracer  *tracing.Tracer
}

// pipelineOptions are the optional parts of a pipeline.
type pipelineOptions struct {
	collector *metrics.Collector
	reloads   source.ReloadRecorder
}

func (a *app) newPipeline(paths []string, opts pipelineOptions) (*pipeline, error) {
	reg, err := a.catalog()
	if err != nil {
		return nil, cli.NewExitError(cli.ExitUsage, err)
	}

	engineOpts := &compose.Options{Logger: a.logger.Component("compose")}
	if opts.collector != nil {
		engineOpts.Recorder = opts.collector
	}
	engine := compose.NewEngine(reg, engineOpts)

	loader := source.NewLoader(&source.LoaderConfig{MaxIncludeDepth: a.cfg.Stack.MaxIncludeDepth})

	tracer, err := tracing.New(&a.cfg.Telemetry.Tracing, tracing.WithServiceVersion(Version))
	if err != nil {
		return nil, cli.NewExitError(cli.ExitUsage, err)
	}

	rt := &pipeline{tracer: tracer}
	mopts := &source.ManagerOptions{
		Logger:   a.logger.Component("source"),
		Tracer:   tracer.Tracer(),
		Resolver: cascade.NewResolver(a.cache(opts.collector)),
		Debounce: a.cfg.Stack.Debounce,
	}
	if opts.reloads != nil {
		mopts.Metrics = opts.reloads
	}

	if a.cfg.Audit.Enabled {
		store, err := a.openAudit()
		if err != nil {
			_ = tracer.Shutdown(context.Background())
			return nil, cli.NewExitError(cli.ExitUsage, err)
		}
		rt.store = store
		mopts.Audit = store
	}

	m, err := source.NewManager(loader, engine, paths, mopts)
	if err != nil {
		rt.Close()
		return nil, cli.NewExitError(cli.ExitUsage, err)
	}
	rt.manager = m
	return rt, nil
}

func (a *app) cache(collector *metrics.Collector) *cascade.Cache {
	if a.cfg.Cache.Disabled {
		return nil
	}
	var observer cascade.CacheObserver
	if collector != nil {
		observer = collector.CacheObserver("resolve")
	}
	return cascade.NewCache(a.cfg.Cache.MaxEntries, observer)
}

func (a *app) openAudit() (*audit.Store, error) {
	return audit.Open(&audit.Config{
		Driver:      a.cfg.Audit.Driver,
		Path:        a.cfg.Audit.Path,
		BusyTimeout: a.cfg.Audit.BusyTimeout,
	})
}

// Close flushes spans and closes the audit store.
func (rt *pipeline) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.tracer.Shutdown(ctx); err != nil {
		slog.Warn("failed to flush spans", "error", err)
	}
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			slog.Warn("failed to close audit store", "error", err)
		}
	}
}
