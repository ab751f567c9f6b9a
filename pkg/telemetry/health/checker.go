package health

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"mercator-hq/cascade/pkg/cascade"
)

// Statuses reported by checks and by the aggregate.
const (
	StatusOK        = "ok"
	StatusReady     = "ready"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// DefaultCheckTimeout bounds a check when New is given zero.
const DefaultCheckTimeout = 5 * time.Second

// ErrCheckTimeout is reported when a check does not return in time.
var ErrCheckTimeout = errors.New("health check timeout")

// CheckFunc returns nil when the component is healthy.
type CheckFunc func(ctx context.Context) error

// CheckResult is the outcome of one check.
type CheckResult struct {
	Status   string        `json:"status"`
	Critical bool          `json:"critical,omitempty"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Status is the aggregate outcome of a probe.
type Status struct {
	Status    string                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Ready reports whether the probe should answer 200.
func (s Status) Ready() bool {
	return s.Status != StatusUnhealthy
}

type check struct {
	critical bool
	fn       CheckFunc
}

// Checker runs registered checks. It is safe for concurrent use.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]check
	timeout time.Duration
	now     func() time.Time
}

// New creates a checker. A zero timeout uses DefaultCheckTimeout.
func New(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	return &Checker{
		checks:  make(map[string]check),
		timeout: timeout,
		now:     time.Now,
	}
}

// Register adds or replaces the check called name.
func (c *Checker) Register(name string, critical bool, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check{critical: critical, fn: fn}
}

// Unregister removes the check called name.
func (c *Checker) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// Names returns the registered check names, sorted.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Liveness reports that the process is running.
func (c *Checker) Liveness() Status {
	return Status{Status: StatusOK, Timestamp: c.now()}
}

// Readiness runs every check concurrently and aggregates the results.
func (c *Checker) Readiness(ctx context.Context) Status {
	c.mu.RLock()
	checks := make(map[string]check, len(c.checks))
	for name, ch := range c.checks {
		checks[name] = ch
	}
	c.mu.RUnlock()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]CheckResult, len(checks))
	)
	for name, ch := range checks {
		wg.Add(1)
		go func(name string, ch check) {
			defer wg.Done()
			res := c.run(ctx, ch)
			mu.Lock()
			results[name] = res
			mu.Unlock()
		}(name, ch)
	}
	wg.Wait()

	status := StatusReady
	for _, res := range results {
		if res.Status == StatusOK {
			continue
		}
		if res.Critical {
			status = StatusUnhealthy
			break
		}
		status = StatusDegraded
	}

	return Status{Status: status, Checks: results, Timestamp: c.now()}
}

func (c *Checker) run(ctx context.Context, ch check) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() { done <- ch.fn(ctx) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ErrCheckTimeout
	}

	res := CheckResult{Status: StatusOK, Critical: ch.critical, Duration: time.Since(start)}
	if err != nil {
		res.Status = StatusUnhealthy
		res.Message = err.Error()
	}
	return res
}

// CascadeSource is what the stack checks inspect; *source.Manager
// implements it.
type CascadeSource interface {
	Current() *cascade.Cascade
	LastError() error
}

// CascadeInstalled fails until src has a cascade to serve.
func CascadeInstalled(src CascadeSource) CheckFunc {
	return func(context.Context) error {
		if src.Current() == nil {
			return errors.New("no cascade installed")
		}
		return nil
	}
}

// LastReload fails while the most recent reload of src failed.
func LastReload(src CascadeSource) CheckFunc {
	return func(context.Context) error {
		if err := src.LastError(); err != nil {
			return fmt.Errorf("last reload failed: %w", err)
		}
		return nil
	}
}
