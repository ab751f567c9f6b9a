package diag

import (
	"fmt"
	"sort"
	"strings"

	"mercator-hq/cascade/pkg/rules"
)

// Kind categorizes a diagnostic.
type Kind string

const (
	KindStack       Kind = "stack"        // Malformed layer stack
	KindUnknownRule Kind = "unknown_rule" // Rule id absent from the catalog
	KindValidation  Kind = "validation"   // Setting violates the rule schema
	KindConflict    Kind = "conflict"     // Same-tier layers define one rule
)

// Diagnostic is a single report. All concrete diagnostics are pointers to the
// structs in this package.
type Diagnostic interface {
	error
	Kind() Kind
}

// StackError reports a structural defect in a layer stack.
type StackError struct {
	// Layer is the offending layer name (may be empty when the name itself
	// is the problem).
	Layer string

	// Index is the position of the layer in the input, before sorting.
	Index int

	// Field is the layer field at fault: "name", "tier", "order", "scope".
	Field string

	// Message describes the defect.
	Message string
}

// Kind implements Diagnostic.
func (e *StackError) Kind() Kind { return KindStack }

// Error implements the error interface.
func (e *StackError) Error() string {
	if e.Layer != "" {
		return fmt.Sprintf("stack error in layer %q at %s: %s", e.Layer, e.Field, e.Message)
	}
	return fmt.Sprintf("stack error in layer #%d at %s: %s", e.Index, e.Field, e.Message)
}

// UnknownRuleError reports a rule id that the catalog does not know. One
// error is produced per id; Layers lists every layer that referenced it.
type UnknownRuleError struct {
	RuleID     rules.RuleID
	Layers     []string
	Suggestion string
}

// Kind implements Diagnostic.
func (e *UnknownRuleError) Kind() Kind { return KindUnknownRule }

// Error implements the error interface.
func (e *UnknownRuleError) Error() string {
	msg := fmt.Sprintf("unknown rule %q referenced by %s", e.RuleID, quoteList(e.Layers))
	if e.Suggestion != "" {
		msg += " (did you mean " + fmt.Sprintf("%q", e.Suggestion) + "?)"
	}
	return msg
}

// Violation is one failed schema constraint.
type Violation struct {
	// Path locates the offending value, e.g. "severity" or "options[0].code".
	Path string `json:"path"`

	// Message describes the constraint.
	Message string `json:"message"`
}

// String implements fmt.Stringer.
func (v Violation) String() string {
	return v.Path + ": " + v.Message
}

// ValidationError reports that a layer setting violates its rule schema.
type ValidationError struct {
	Layer      string
	RuleID     rules.RuleID
	Violations []Violation
}

// Kind implements Diagnostic.
func (e *ValidationError) Kind() Kind { return KindValidation }

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("invalid setting for rule %q in layer %q: %s", e.RuleID, e.Layer, strings.Join(parts, "; "))
}

// Contender is one side of a conflict.
type Contender struct {
	Layer   string
	Setting rules.Setting
}

// ConflictError reports that several layers of one tier define one rule.
type ConflictError struct {
	RuleID     rules.RuleID
	Tier       int
	Contenders []Contender
}

// Kind implements Diagnostic.
func (e *ConflictError) Kind() Kind { return KindConflict }

// Layers returns the contending layer names.
func (e *ConflictError) Layers() []string {
	names := make([]string, len(e.Contenders))
	for i, c := range e.Contenders {
		names[i] = c.Layer
	}
	return names
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	parts := make([]string, len(e.Contenders))
	for i, c := range e.Contenders {
		parts[i] = fmt.Sprintf("%q=%s", c.Layer, c.Setting)
	}
	return fmt.Sprintf("rule %q defined by %d layers in tier %d: %s", e.RuleID, len(e.Contenders), e.Tier, strings.Join(parts, ", "))
}

func quoteList(names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = fmt.Sprintf("%q", n)
	}
	if len(q) == 1 {
		return "layer " + q[0]
	}
	return "layers " + strings.Join(q, ", ")
}

// Diagnostics is an ordered collection of reports.
type Diagnostics struct {
	items []Diagnostic
}

// New creates an empty list.
func New() *Diagnostics {
	return &Diagnostics{items: make([]Diagnostic, 0)}
}

// Add appends a report.
func (d *Diagnostics) Add(item Diagnostic) {
	d.items = append(d.items, item)
}

// Merge appends every report of other.
func (d *Diagnostics) Merge(other *Diagnostics) {
	if other == nil {
		return
	}
	d.items = append(d.items, other.items...)
}

// Items returns the reports in the order they were added.
func (d *Diagnostics) Items() []Diagnostic {
	out := make([]Diagnostic, len(d.items))
	copy(out, d.items)
	return out
}

// HasErrors reports whether the list is non-empty.
func (d *Diagnostics) HasErrors() bool {
	return len(d.items) > 0
}

// Count returns the number of reports.
func (d *Diagnostics) Count() int {
	return len(d.items)
}

// ByKind returns the reports of one kind.
func (d *Diagnostics) ByKind(kind Kind) []Diagnostic {
	var out []Diagnostic
	for _, item := range d.items {
		if item.Kind() == kind {
			out = append(out, item)
		}
	}
	return out
}

// HasKind reports whether at least one report of kind is present.
func (d *Diagnostics) HasKind(kind Kind) bool {
	for _, item := range d.items {
		if item.Kind() == kind {
			return true
		}
	}
	return false
}

// CountByKind returns the number of reports per kind.
func (d *Diagnostics) CountByKind() map[Kind]int {
	counts := make(map[Kind]int)
	for _, item := range d.items {
		counts[item.Kind()]++
	}
	return counts
}

// ToError returns nil for an empty list and the list itself otherwise.
func (d *Diagnostics) ToError() error {
	if !d.HasErrors() {
		return nil
	}
	return d
}

// Error implements the error interface.
func (d *Diagnostics) Error() string {
	if !d.HasErrors() {
		return ""
	}
	if len(d.items) == 1 {
		return d.items[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "found %d problem(s):", len(d.items))
	for _, item := range d.items {
		sb.WriteString("\n  - ")
		sb.WriteString(item.Error())
	}
	return sb.String()
}

// Sort orders the reports by kind, then by message, for stable output.
func (d *Diagnostics) Sort() {
	rank := map[Kind]int{KindStack: 0, KindUnknownRule: 1, KindValidation: 2, KindConflict: 3}
	sort.SliceStable(d.items, func(i, j int) bool {
		ri, rj := rank[d.items[i].Kind()], rank[d.items[j].Kind()]
		if ri != rj {
			return ri < rj
		}
		return d.items[i].Error() < d.items[j].Error()
	})
}
