package compose

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/cascade/pkg/cascade"
	"mercator-hq/cascade/pkg/catalog"
	"mercator-hq/cascade/pkg/diag"
	"mercator-hq/cascade/pkg/rules"
	"mercator-hq/cascade/pkg/stack"
)

// Outcome labels a composition result.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Report summarizes one composition for metrics and audit.
type Report struct {
	Outcome     Outcome
	Duration    time.Duration
	Layers      int
	Rules       int
	Diagnostics map[diag.Kind]int

	// Generation and Fingerprint are set on success only.
	Generation  uint64
	Fingerprint string
}

// Recorder receives a Report after every composition.
type Recorder interface {
	RecordComposition(report Report)
}

// Options configures an Engine. The zero value is usable.
type Options struct {
	// Logger defaults to slog.Default() tagged with component=compose.
	Logger *slog.Logger

	// Recorder is optional.
	Recorder Recorder
}

// Engine composes stacks against a rule catalog. It holds no per-stack
// state and is safe for concurrent use.
type Engine struct {
	catalog  catalog.Catalog
	logger   *slog.Logger
	recorder Recorder
}

// NewEngine creates an engine for cat. opts may be nil.
func NewEngine(cat catalog.Catalog, opts *Options) *Engine {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "compose")
	}
	return &Engine{catalog: cat, logger: logger, recorder: opts.Recorder}
}

// Catalog returns the catalog the engine validates against.
func (e *Engine) Catalog() catalog.Catalog {
	return e.catalog
}

// Compose validates st and builds its cascade. On failure the error is a
// *diag.Diagnostics holding every problem found, sorted by kind.
func (e *Engine) Compose(st *stack.Stack) (*cascade.Cascade, error) {
	c, _, err := e.ComposeReport(st)
	return c, err
}

// ComposeReport is Compose that also returns the Report handed to the
// Recorder. The report is the zero value when st or the catalog is nil.
func (e *Engine) ComposeReport(st *stack.Stack) (*cascade.Cascade, Report, error) {
	start := time.Now()

	if st == nil {
		return nil, Report{}, fmt.Errorf("stack cannot be nil")
	}
	if e.catalog == nil {
		return nil, Report{}, fmt.Errorf("catalog cannot be nil")
	}

	layers := st.Layers()
	diags := diag.New()
	e.checkRules(layers, diags)
	e.checkConflicts(st, diags)

	report := Report{
		Layers:      len(layers),
		Rules:       len(st.RuleIDs()),
		Diagnostics: diags.CountByKind(),
	}

	if diags.HasErrors() {
		diags.Sort()
		report.Outcome = OutcomeFailure
		report.Duration = time.Since(start)
		e.record(report)
		e.logger.Warn("composition failed",
			"layers", report.Layers,
			"diagnostics", diags.Count(),
			"unknown_rules", report.Diagnostics[diag.KindUnknownRule],
			"validation_errors", report.Diagnostics[diag.KindValidation],
			"conflicts", report.Diagnostics[diag.KindConflict],
		)
		return nil, report, diags
	}

	c, err := cascade.New(layers)
	if err != nil {
		report.Outcome = OutcomeFailure
		report.Duration = time.Since(start)
		e.record(report)
		e.logger.Error("composition failed", "layers", report.Layers, "error", err)
		return nil, report, err
	}
	report.Outcome = OutcomeSuccess
	report.Duration = time.Since(start)
	report.Generation = c.Generation()
	report.Fingerprint = c.Fingerprint()
	e.record(report)

	e.logger.Info("composition succeeded",
		"layers", report.Layers,
		"rules", report.Rules,
		"generation", c.Generation(),
		"fingerprint", c.Fingerprint()[:12],
		"duration", report.Duration,
	)
	return c, report, nil
}

// checkRules reports unknown rules and invalid settings. Unknown ids are
// reported once, listing every layer that references them.
func (e *Engine) checkRules(layers []*rules.Layer, diags *diag.Diagnostics) {
	unknown := make(map[rules.RuleID][]string)
	var unknownOrder []rules.RuleID

	for _, layer := range layers {
		for _, id := range layer.RuleIDs() {
			setting, _ := layer.Setting(id)

			// Settings built in code may skip normalization.
			if _, err := rules.NormalizeOptions(setting.Options); err != nil {
				diags.Add(&diag.ValidationError{
					Layer:      layer.Name(),
					RuleID:     id,
					Violations: []diag.Violation{{Path: "options", Message: err.Error()}},
				})
				continue
			}

			err := e.catalog.Validate(id, setting)
			if err == nil {
				continue
			}

			var notFound *catalog.NotFoundError
			var invalid *catalog.SettingError
			switch {
			case errors.As(err, &notFound):
				if _, seen := unknown[id]; !seen {
					unknownOrder = append(unknownOrder, id)
				}
				unknown[id] = append(unknown[id], layer.Name())
			case errors.As(err, &invalid):
				diags.Add(&diag.ValidationError{
					Layer:      layer.Name(),
					RuleID:     id,
					Violations: invalid.Violations,
				})
			default:
				diags.Add(&diag.ValidationError{
					Layer:      layer.Name(),
					RuleID:     id,
					Violations: []diag.Violation{{Path: "setting", Message: err.Error()}},
				})
			}
		}
	}

	candidates := e.knownIDs()
	for _, id := range unknownOrder {
		diags.Add(&diag.UnknownRuleError{
			RuleID:     id,
			Layers:     unknown[id],
			Suggestion: diag.Suggest(string(id), candidates),
		})
	}
}

func (e *Engine) knownIDs() []string {
	lister, ok := e.catalog.(catalog.Lister)
	if !ok {
		return nil
	}
	ids := lister.RuleIDs()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

// checkConflicts reports every rule defined by more than one layer of the
// same tier. Scopes are not considered: two layers of one tier are peers
// whether or not their scopes overlap.
func (e *Engine) checkConflicts(st *stack.Stack, diags *diag.Diagnostics) {
	byTier := st.ByTier()
	for _, tier := range st.Tiers() {
		peers := byTier[tier]
		if len(peers) < 2 {
			continue
		}

		definers := make(map[rules.RuleID][]diag.Contender)
		for _, layer := range peers {
			for _, id := range layer.RuleIDs() {
				setting, _ := layer.Setting(id)
				definers[id] = append(definers[id], diag.Contender{Layer: layer.Name(), Setting: setting})
			}
		}

		ids := make([]rules.RuleID, 0, len(definers))
		for id, contenders := range definers {
			if len(contenders) > 1 {
				ids = append(ids, id)
			}
		}
		rules.SortIDs(ids)

		for _, id := range ids {
			diags.Add(&diag.ConflictError{RuleID: id, Tier: tier, Contenders: definers[id]})
		}
	}
}

func (e *Engine) record(r Report) {
	if e.recorder != nil {
		e.recorder.RecordComposition(r)
	}
}

// Compose composes st against cat with a default engine.
func Compose(st *stack.Stack, cat catalog.Catalog) (*cascade.Cascade, error) {
	return NewEngine(cat, nil).Compose(st)
}
