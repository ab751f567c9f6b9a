package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"mercator-hq/cascade/pkg/source"
)

// ReloadReporter prints one status line per reload of a watched stack and
// forwards every outcome to another recorder.
type ReloadReporter struct {
	mu   sync.Mutex
	w    io.Writer
	next source.ReloadRecorder
	now  func() time.Time
}

// NewReloadReporter creates a reporter that writes to w. If w is nil, it
// defaults to os.Stderr. next may be nil.
func NewReloadReporter(w io.Writer, next source.ReloadRecorder) *ReloadReporter {
	if w == nil {
		w = os.Stderr
	}
	return &ReloadReporter{w: w, next: next, now: time.Now}
}

// RecordReload implements source.ReloadRecorder.
func (r *ReloadReporter) RecordReload(outcome string, duration time.Duration) {
	if r.next != nil {
		r.next.RecordReload(outcome, duration)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stamp := r.now().Format("15:04:05")
	d := duration.Round(time.Microsecond)
	if outcome == source.ReloadSuccess {
		fmt.Fprintf(r.w, "%s ✓ reloaded in %s\n", stamp, d)
		return
	}
	fmt.Fprintf(r.w, "%s ✗ reload failed after %s, keeping the previous cascade\n", stamp, d)
}
