package source

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"mercator-hq/cascade/pkg/audit"
	"mercator-hq/cascade/pkg/cascade"
	"mercator-hq/cascade/pkg/compose"
	"mercator-hq/cascade/pkg/telemetry/logging"
	"mercator-hq/cascade/pkg/telemetry/tracing"
)

// Reload outcomes reported to a ReloadRecorder.
const (
	ReloadSuccess = "success"
	ReloadFailure = "failure"
)

// ReloadRecorder receives the outcome and duration of every reload.
type ReloadRecorder interface {
	RecordReload(outcome string, duration time.Duration)
}

// Auditor stores a record of every composition a reload performs.
type Auditor interface {
	Record(ctx context.Context, rec *audit.Record) error
}

// ManagerOptions configures a Manager. Every field is optional.
type ManagerOptions struct {
	// Logger defaults to slog.Default() tagged with component=source.
	Logger *slog.Logger

	// Tracer defaults to a no-op tracer.
	Tracer trace.Tracer

	Metrics ReloadRecorder
	Audit   Auditor

	// Resolver receives each new cascade. Defaults to a resolver with an
	// unbounded cache.
	Resolver *cascade.Resolver

	// Debounce is the quiet period Watch waits for after a change.
	Debounce time.Duration
}

// Manager keeps a resolver in sync with a set of stack documents.
type Manager struct {
	loader   *Loader
	engine   *compose.Engine
	paths    []string
	resolver *cascade.Resolver
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  ReloadRecorder
	audit    Auditor
	debounce time.Duration

	// reloadMu serializes reloads; mu guards the fields below it.
	reloadMu   sync.Mutex
	mu         sync.RWMutex
	files      []string
	lastReload time.Time
	lastErr    error
	onReload   func([]string)
}

// NewManager creates a manager for the documents at paths. Nothing is read
// until Reload is called.
func NewManager(loader *Loader, engine *compose.Engine, paths []string, opts *ManagerOptions) (*Manager, error) {
	if loader == nil {
		return nil, fmt.Errorf("loader cannot be nil")
	}
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("at least one stack document is required")
	}
	if opts == nil {
		opts = &ManagerOptions{}
	}

	m := &Manager{
		loader:   loader,
		engine:   engine,
		paths:    append([]string(nil), paths...),
		resolver: opts.Resolver,
		logger:   opts.Logger,
		tracer:   opts.Tracer,
		metrics:  opts.Metrics,
		audit:    opts.Audit,
		debounce: opts.Debounce,
	}
	if m.resolver == nil {
		m.resolver = cascade.NewResolver(cascade.NewCache(0, nil))
	}
	if m.logger == nil {
		m.logger = slog.Default().With("component", "source")
	}
	if m.tracer == nil {
		m.tracer = noop.NewTracerProvider().Tracer(tracing.InstrumentationName)
	}
	return m, nil
}

// Resolver returns the resolver the manager installs cascades into.
func (m *Manager) Resolver() *cascade.Resolver {
	return m.resolver
}

// Current returns the installed cascade, or nil before the first successful
// reload.
func (m *Manager) Current() *cascade.Cascade {
	return m.resolver.Current()
}

// Files returns every document read by the last reload that got past
// loading.
func (m *Manager) Files() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.files...)
}

// LastError returns the error of the last reload, or nil if it succeeded.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// LastReload returns when the last successful reload finished.
func (m *Manager) LastReload() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastReload
}

// Reload loads and composes the documents and installs the result. On any
// failure the previously installed cascade stays in place and the error
// (often a *diag.Diagnostics) is returned.
func (m *Manager) Reload(ctx context.Context) (*cascade.Cascade, error) {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()

	start := time.Now()
	reloadID := uuid.NewString()
	ctx = logging.WithReloadID(ctx, reloadID)
	ctx, span := m.tracer.Start(ctx, tracing.SpanReload)
	defer span.End()
	tracing.SetStackAttributes(span, m.paths)
	span.SetAttributes(attribute.String(tracing.AttrReloadID, reloadID))
	if id := tracing.TraceID(ctx); id != "" {
		ctx = logging.WithTraceID(ctx, id)
	}
	logger := logging.Scoped(ctx, m.logger)

	c, err := m.reload(ctx, logger)
	duration := time.Since(start)
	tracing.SetStatus(span, err)

	m.mu.Lock()
	m.lastErr = err
	if err == nil {
		m.lastReload = time.Now()
	}
	m.mu.Unlock()

	if err != nil {
		m.recordReload(ReloadFailure, duration)
		logger.Warn("stack reload failed, keeping previous cascade",
			"error", err,
			"duration_ms", duration.Milliseconds(),
		)
		return nil, err
	}

	m.recordReload(ReloadSuccess, duration)
	logger.Info("stack reloaded",
		"generation", c.Generation(),
		"layers", c.Len(),
		"rules", len(c.RuleIDs()),
		"duration_ms", duration.Milliseconds(),
	)
	return c, nil
}

func (m *Manager) reload(ctx context.Context, logger *slog.Logger) (*cascade.Cascade, error) {
	_, loadSpan := m.tracer.Start(ctx, tracing.SpanLoad)
	res, err := m.loader.Load(m.paths...)
	tracing.SetStatus(loadSpan, err)
	loadSpan.End()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.files = res.Files
	onReload := m.onReload
	m.mu.Unlock()
	if onReload != nil {
		onReload(res.Files)
	}

	_, composeSpan := m.tracer.Start(ctx, tracing.SpanCompose)
	c, report, err := m.engine.ComposeReport(res.Stack)
	tracing.SetCompositionAttributes(composeSpan, report)
	tracing.SetStatus(composeSpan, err)
	composeSpan.End()

	m.recordAudit(ctx, logger, report, res)
	if err != nil {
		return nil, err
	}

	prev := m.resolver.Swap(c)
	if prev != nil {
		trace.SpanFromContext(ctx).SetAttributes(attribute.Int64(tracing.AttrPreviousGeneration, int64(prev.Generation())))
	}
	return c, nil
}

func (m *Manager) recordReload(outcome string, d time.Duration) {
	if m.metrics != nil {
		m.metrics.RecordReload(outcome, d)
	}
}

func (m *Manager) recordAudit(ctx context.Context, logger *slog.Logger, report compose.Report, res *Result) {
	if m.audit == nil {
		return
	}
	layers := make([]string, 0, res.Stack.Len())
	for _, l := range res.Stack.Layers() {
		layers = append(layers, l.Name())
	}

	rec := audit.NewRecord(report, layers)
	rec.ReloadID = logging.GetReloadID(ctx)
	if err := m.audit.Record(ctx, rec); err != nil {
		// An audit failure does not fail the reload.
		logger.Error("failed to record composition", "error", err)
	}
}

// Watch reloads whenever a document read by the last reload changes. It
// performs an initial reload if none has succeeded yet and blocks until ctx
// is cancelled. Reload failures are logged and the previous cascade is
// kept.
func (m *Manager) Watch(ctx context.Context) error {
	fw, err := NewFileWatcher(m.debounce, m.logger)
	if err != nil {
		return err
	}
	defer fw.Close()

	files := m.Files()
	if len(files) == 0 {
		files = m.paths
	}
	if err := fw.SetFiles(files); err != nil {
		return err
	}

	// Includes can change on reload: follow the new document set.
	m.mu.Lock()
	m.onReload = func(files []string) {
		if err := fw.SetFiles(files); err != nil {
			m.logger.Error("failed to update watched files", "error", err)
		}
	}
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.onReload = nil
		m.mu.Unlock()
	}()

	if m.Current() == nil {
		if _, err := m.Reload(ctx); err != nil {
			m.logger.Warn("initial reload failed, watching for a fix", "error", err)
		}
	}

	return fw.Watch(ctx, func(changed []string) error {
		m.logger.Info("stack documents changed", "files", changed)
		_, err := m.Reload(ctx)
		return err
	})
}
