package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"mercator-hq/cascade/pkg/audit"
	"mercator-hq/cascade/pkg/cli"
	"mercator-hq/cascade/pkg/telemetry/health"
	"mercator-hq/cascade/pkg/telemetry/metrics"
	"mercator-hq/cascade/pkg/telemetry/tracing"
)

var watchFlags struct {
	listen string
}

var watchCmd = &cobra.Command{
	Use:   "watch [documents...]",
	Short: "Recompose the stack whenever a document changes",
	Long: `Compose the stack, then watch every document it read (includes
too) and recompose after each change. A change that breaks the stack is
reported and the previous cascade stays installed.

While watching, an HTTP listener serves:
  /healthz   liveness
  /readyz    readiness (503 until a cascade is installed)
  /version   build information
  /metrics   Prometheus metrics (when telemetry.metrics.enabled is set)

Audit retention runs on audit.retention.schedule when audit is enabled.

Examples:
  cascade watch stack.yaml
  cascade watch --config cascade.yaml --listen 127.0.0.1:9464`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchFlags.listen, "listen", "l", "", "override telemetry.metrics.listen_address (\"off\" disables the listener)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	a := current
	paths, err := a.stackPaths(args)
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	collector := metrics.NewCollector(&a.cfg.Telemetry.Metrics, nil)
	p, err := a.newPipeline(paths, pipelineOptions{
		collector: collector,
		reloads:   cli.NewReloadReporter(cmd.ErrOrStderr(), collector),
	})
	if err != nil {
		return err
	}
	defer p.Close()

	if p.store != nil {
		scheduler := audit.NewScheduler(p.store, audit.RetentionPolicy{
			Days:     a.cfg.Audit.Retention.Days,
			Schedule: a.cfg.Audit.Retention.Schedule,
		})
		if err := scheduler.Start(ctx); err != nil {
			slog.Warn("failed to start retention scheduler", "error", err)
		} else {
			defer scheduler.Stop()
			if next := scheduler.NextRun(); next != nil {
				slog.Debug("audit retention scheduler started", "next_run", next)
			}
		}
	}

	addr := a.cfg.Telemetry.Metrics.ListenAddress
	if watchFlags.listen != "" {
		addr = watchFlags.listen
	}
	if addr != "off" {
		srv, err := serveTelemetry(addr, a, p, collector)
		if err != nil {
			return cli.NewCommandError("watch", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("shutdown failed", "error", err)
			}
		}()
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Probes on http://%s/readyz\n", addr)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %d document(s), press Ctrl+C to stop\n", len(paths))
	if err := p.manager.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return cli.NewCommandError("watch", err)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "✓ Stopped")
	return nil
}

// serveTelemetry starts the probe and metrics listener in the background.
func serveTelemetry(addr string, a *app, p *pipeline, collector *metrics.Collector) (*http.Server, error) {
	checker := health.New(2 * time.Second)
	checker.Register("cascade", true, health.CascadeInstalled(p.manager))
	checker.Register("reload", false, health.LastReload(p.manager))

	mux := http.NewServeMux()
	health.Mount(mux, checker, buildInfo())
	if collector.Enabled() {
		mux.Handle(a.cfg.Telemetry.Metrics.Path, collector.Handler())
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	handler := otelhttp.NewHandler(mux, "telemetry",
		otelhttp.WithTracerProvider(p.tracer.Provider()),
		otelhttp.WithPropagators(tracing.Propagator()),
	)
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("telemetry listener failed", "error", err)
		}
	}()
	return srv, nil
}
