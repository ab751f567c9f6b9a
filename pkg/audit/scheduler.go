package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RetentionPolicy says how long records are kept and when pruning runs.
type RetentionPolicy struct {
	// Days is how long records are kept. Zero keeps them forever.
	Days int

	// Schedule is a standard five-field cron expression, e.g. "0 3 * * *"
	// for daily at 3 AM.
	Schedule string
}

// Enabled reports whether the policy prunes anything.
func (p RetentionPolicy) Enabled() bool {
	return p.Days > 0 && p.Schedule != ""
}

// cutoff is the oldest composition time kept at now.
func (p RetentionPolicy) cutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -p.Days)
}

// ErrSchedulerRunning is returned by Start on a running scheduler.
var ErrSchedulerRunning = errors.New("retention scheduler already running")

// Scheduler prunes the audit store on a cron schedule. A prune that is
// still running when the next one is due makes cron skip the later one.
type Scheduler struct {
	store  *Store
	policy RetentionPolicy
	now    func() time.Time
	logger *slog.Logger

	mu    sync.Mutex
	cron  *cron.Cron
	entry cron.EntryID
}

// NewScheduler creates a retention scheduler for store.
func NewScheduler(store *Store, policy RetentionPolicy) *Scheduler {
	return &Scheduler{
		store:  store,
		policy: policy,
		now:    time.Now,
		logger: slog.Default().With("component", "audit.scheduler"),
	}
}

// Start schedules pruning. It does nothing when the policy is not enabled.
// The scheduler stops when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return ErrSchedulerRunning
	}
	if !s.policy.Enabled() {
		s.logger.Info("audit retention not configured, skipping scheduler")
		return nil
	}

	log := cronLogger{s.logger}
	c := cron.New(
		cron.WithLogger(log),
		cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
	)
	id, err := c.AddFunc(s.policy.Schedule, func() { s.prune(ctx) })
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.policy.Schedule, err)
	}

	c.Start()
	s.cron, s.entry = c, id
	s.logger.Info("retention scheduler started",
		"schedule", s.policy.Schedule,
		"retention_days", s.policy.Days,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// RunOnce prunes records older than the retention period now.
func (s *Scheduler) RunOnce(ctx context.Context) (int64, error) {
	if s.policy.Days <= 0 {
		return 0, nil
	}
	return s.store.Prune(ctx, s.policy.cutoff(s.now()))
}

func (s *Scheduler) prune(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	deleted, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Error("scheduled pruning failed", "error", err)
		return
	}
	s.logger.Info("scheduled pruning completed",
		"deleted_count", deleted,
		"duration", time.Since(start),
	)
}

// Stop stops the scheduler and waits for a running prune to finish. The
// scheduler may be started again afterwards.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
	s.logger.Info("retention scheduler stopped")
}

// IsRunning reports whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

// NextRun returns the next scheduled pruning time, or nil when the
// scheduler is not running.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}
	next := s.cron.Entry(s.entry).Next
	return &next
}

// cronLogger routes cron's own messages to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
