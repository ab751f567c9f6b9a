package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"mercator-hq/cascade/pkg/diag"
	"mercator-hq/cascade/pkg/rules"
	"mercator-hq/cascade/pkg/source"
)

// Problem kinds for failures that are not composition diagnostics. The
// diagnostics use their own diag.Kind.
const (
	ProblemLoad    = "load"
	ProblemParse   = "parse"
	ProblemInclude = "include"
	ProblemError   = "error"
)

// Problem is one entry of a failed load or composition.
type Problem struct {
	Kind       string           `json:"kind"`
	Message    string           `json:"message"`
	File       string           `json:"file,omitempty"`
	Rule       rules.RuleID     `json:"rule,omitempty"`
	Layers     []string         `json:"layers,omitempty"`
	Tier       *int             `json:"tier,omitempty"`
	Violations []diag.Violation `json:"violations,omitempty"`
}

// ProblemsOf flattens err into individual problems. A *diag.Diagnostics or
// a *source.ErrorList contributes one problem per entry; any other error is
// a single problem.
func ProblemsOf(err error) []Problem {
	if err == nil {
		return nil
	}

	var list *source.ErrorList
	if errors.As(err, &list) {
		var out []Problem
		for _, e := range list.Errors {
			out = append(out, ProblemsOf(e)...)
		}
		return out
	}

	var diags *diag.Diagnostics
	if errors.As(err, &diags) {
		items := diags.Items()
		out := make([]Problem, 0, len(items))
		for _, item := range items {
			out = append(out, diagnosticProblem(item))
		}
		return out
	}

	return []Problem{errorProblem(err)}
}

func diagnosticProblem(d diag.Diagnostic) Problem {
	p := Problem{Kind: string(d.Kind()), Message: d.Error()}
	switch e := d.(type) {
	case *diag.StackError:
		if e.Layer != "" {
			p.Layers = []string{e.Layer}
		}
	case *diag.UnknownRuleError:
		p.Rule = e.RuleID
		p.Layers = e.Layers
	case *diag.ValidationError:
		p.Rule = e.RuleID
		p.Layers = []string{e.Layer}
		p.Violations = e.Violations
	case *diag.ConflictError:
		tier := e.Tier
		p.Rule = e.RuleID
		p.Layers = e.Layers()
		p.Tier = &tier
	}
	return p
}

func errorProblem(err error) Problem {
	var (
		include *source.IncludeError
		parse   *source.ParseError
		load    *source.LoadError
	)
	// Include errors wrap the load error of the included file.
	switch {
	case errors.As(err, &include):
		return Problem{Kind: ProblemInclude, Message: err.Error(), File: include.File}
	case errors.As(err, &parse):
		return Problem{Kind: ProblemParse, Message: err.Error(), File: parse.File}
	case errors.As(err, &load):
		return Problem{Kind: ProblemLoad, Message: err.Error(), File: load.File}
	default:
		return Problem{Kind: ProblemError, Message: err.Error()}
	}
}

// Problems prints every problem of err, followed by a count in text mode.
func (p *Printer) Problems(err error) error {
	problems := ProblemsOf(err)

	if p.isJSON() {
		if problems == nil {
			problems = []Problem{}
		}
		return p.writeJSON(struct {
			OK       bool      `json:"ok"`
			Problems []Problem `json:"problems"`
		}{OK: len(problems) == 0, Problems: problems})
	}

	var sb strings.Builder
	for _, pr := range problems {
		fmt.Fprintf(&sb, "%s: %s\n", pr.Kind, pr.Message)
	}
	fmt.Fprintf(&sb, "\nfound %s\n", plural(len(problems), "problem"))
	_, werr := io.WriteString(p.w, sb.String())
	return werr
}
