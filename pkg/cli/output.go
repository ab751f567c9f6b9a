package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"mercator-hq/cascade/pkg/cascade"
	"mercator-hq/cascade/pkg/rules"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is aligned plain text output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is indented JSON output.
	FormatJSON OutputFormat = "json"
)

// ParseFormat converts a --format flag value. The empty string selects
// FormatText.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (expected text or json)", s)
	}
}

// Printer renders command results in one output format.
type Printer struct {
	w      io.Writer
	format OutputFormat
}

// NewPrinter creates a printer that writes to w. If w is nil, it defaults to
// os.Stdout.
func NewPrinter(w io.Writer, format OutputFormat) *Printer {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = FormatText
	}
	return &Printer{w: w, format: format}
}

// Format returns the output format.
func (p *Printer) Format() OutputFormat { return p.format }

func (p *Printer) isJSON() bool { return p.format == FormatJSON }

func (p *Printer) writeJSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *Printer) table() *tabwriter.Writer {
	return tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
}

// Summary describes a stack that composed cleanly.
type Summary struct {
	Files       []string `json:"files"`
	Layers      int      `json:"layers"`
	Rules       int      `json:"rules"`
	Generation  uint64   `json:"generation"`
	Fingerprint string   `json:"fingerprint"`
}

// Summary prints the outcome of a successful check.
func (p *Printer) Summary(s Summary) error {
	if p.isJSON() {
		return p.writeJSON(struct {
			OK bool `json:"ok"`
			Summary
		}{OK: true, Summary: s})
	}

	_, err := fmt.Fprintf(p.w, "ok: %s, %s from %s (fingerprint %s)\n",
		plural(s.Layers, "layer"), plural(s.Rules, "rule"), plural(len(s.Files), "file"), short(s.Fingerprint))
	return err
}

type resolution struct {
	Rule     rules.RuleID    `json:"rule"`
	Path     string          `json:"path,omitempty"`
	Env      string          `json:"env,omitempty"`
	Found    bool            `json:"found"`
	Severity *rules.Severity `json:"severity,omitempty"`
	Options  []any           `json:"options,omitempty"`
	Source   string          `json:"source,omitempty"`
	Shadowed []string        `json:"shadowed,omitempty"`
}

// Result prints the resolution of one rule. found is false when no
// matching layer configures the rule.
func (p *Printer) Result(id rules.RuleID, ctx rules.Context, r cascade.Result, found bool) error {
	if p.isJSON() {
		out := resolution{Rule: id, Path: ctx.Path, Env: ctx.Env, Found: found}
		if found {
			sev := r.Severity
			out.Severity = &sev
			out.Options = r.Options
			out.Source = r.Source
			out.Shadowed = r.Shadowed
		}
		return p.writeJSON(out)
	}

	if !found {
		_, err := fmt.Fprintf(p.w, "%s: not configured%s\n", id, contextSuffix(ctx))
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s\n", id, r.Setting())
	fmt.Fprintf(&sb, "  source:   %s\n", r.Source)
	if len(r.Shadowed) > 0 {
		fmt.Fprintf(&sb, "  shadowed: %s\n", strings.Join(r.Shadowed, ", "))
	}
	_, err := io.WriteString(p.w, sb.String())
	return err
}

// Dump prints every resolved rule, sorted by id.
func (p *Printer) Dump(ctx rules.Context, results map[rules.RuleID]cascade.Result) error {
	ids := make([]rules.RuleID, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	rules.SortIDs(ids)

	if p.isJSON() {
		list := make([]cascade.Result, len(ids))
		for i, id := range ids {
			list[i] = results[id]
		}
		return p.writeJSON(struct {
			Path  string           `json:"path,omitempty"`
			Env   string           `json:"env,omitempty"`
			Rules []cascade.Result `json:"rules"`
		}{Path: ctx.Path, Env: ctx.Env, Rules: list})
	}

	if len(ids) > 0 {
		tw := p.table()
		fmt.Fprintln(tw, "RULE\tSETTING\tSOURCE")
		for _, id := range ids {
			r := results[id]
			fmt.Fprintf(tw, "%s\t%s\t%s\n", id, r.Setting(), r.Source)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(p.w)
	}
	_, err := fmt.Fprintf(p.w, "%s%s\n", plural(len(ids), "rule"), contextSuffix(ctx))
	return err
}

func contextSuffix(ctx rules.Context) string {
	switch {
	case ctx.Path != "" && ctx.Env != "":
		return fmt.Sprintf(" for %s (env %s)", ctx.Path, ctx.Env)
	case ctx.Path != "":
		return " for " + ctx.Path
	case ctx.Env != "":
		return " for env " + ctx.Env
	default:
		return ""
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func short(fingerprint string) string {
	if len(fingerprint) > 12 {
		return fingerprint[:12]
	}
	return fingerprint
}
