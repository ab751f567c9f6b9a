package audit

import (
	"time"

	"github.com/google/uuid"

	"mercator-hq/cascade/pkg/compose"
)

// Record is one audited composition.
type Record struct {
	// ID is a random UUID.
	ID string `json:"id"`

	// ReloadID correlates the record with log lines of the same reload.
	ReloadID string `json:"reload_id,omitempty"`

	Outcome compose.Outcome `json:"outcome"`

	// Generation and Fingerprint identify the installed cascade. Both are
	// zero for failed compositions.
	Generation  uint64 `json:"generation,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`

	// Diagnostics counts problems by kind.
	Diagnostics map[string]int `json:"diagnostics,omitempty"`

	// Layers are the layer names of the stack in precedence order.
	Layers []string `json:"layers"`

	Rules     int           `json:"rules"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

// NewRecord builds a record from a composition report.
func NewRecord(report compose.Report, layers []string) *Record {
	diags := make(map[string]int, len(report.Diagnostics))
	for kind, n := range report.Diagnostics {
		if n > 0 {
			diags[string(kind)] = n
		}
	}

	return &Record{
		ID:          uuid.NewString(),
		Outcome:     report.Outcome,
		Generation:  report.Generation,
		Fingerprint: report.Fingerprint,
		Diagnostics: diags,
		Layers:      append([]string(nil), layers...),
		Rules:       report.Rules,
		Duration:    report.Duration,
		CreatedAt:   time.Now().UTC(),
	}
}

// DiagnosticCount returns the total number of diagnostics.
func (r *Record) DiagnosticCount() int {
	total := 0
	for _, n := range r.Diagnostics {
		total += n
	}
	return total
}
