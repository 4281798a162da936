// Package scheduler triggers the periodic budget sweep and the weekly
// summary from inside the long-running service.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ogulcanaydogan/budget-guardian/pkg/model"
)

// summaryCheckInterval is how often the weekly summary slot is polled.
const summaryCheckInterval = 5 * time.Minute

// Runner performs the scheduled work.
type Runner interface {
	Sweep(ctx context.Context) ([]model.AlertOutcome, error)
	WeeklySummaries(ctx context.Context) ([]model.SummaryOutcome, error)
}

// Config sets when work runs. Times are UTC.
type Config struct {
	SweepInterval  time.Duration
	SummaryWeekday time.Weekday
	SummaryHour    int
}

// Scheduler runs sweeps on an interval and the weekly summary once per
// ISO week at or after the configured weekday and hour.
type Scheduler struct {
	runner Runner
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	mu          sync.Mutex
	lastSummary int // ISO year*100 + week of the last summary run
}

func New(runner Runner, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Hour
	}
	return &Scheduler{runner: runner, cfg: cfg, logger: logger, now: time.Now}
}

// WithClock replaces the wall clock.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Run blocks until ctx is cancelled. It sweeps once at start.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started",
		"sweep_interval", s.cfg.SweepInterval.String(),
		"summary_weekday", s.cfg.SummaryWeekday.String(),
		"summary_hour", s.cfg.SummaryHour,
	)

	sweepTicker := time.NewTicker(s.cfg.SweepInterval)
	defer sweepTicker.Stop()
	summaryTicker := time.NewTicker(summaryCheckInterval)
	defer summaryTicker.Stop()

	s.RunSweep(ctx)
	s.MaybeRunSummary(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-sweepTicker.C:
			s.RunSweep(ctx)
		case <-summaryTicker.C:
			s.MaybeRunSummary(ctx)
		}
	}
}

// RunSweep performs one sweep, logging failures.
func (s *Scheduler) RunSweep(ctx context.Context) {
	outcomes, err := s.runner.Sweep(ctx)
	if err != nil {
		s.logger.Error("scheduled sweep failed", "error", err)
		return
	}
	s.logger.Debug("scheduled sweep done", "budgets", len(outcomes))
}

// SummaryDue reports whether the weekly summary should run at t.
func (s *Scheduler) SummaryDue(t time.Time) bool {
	t = t.UTC()
	if t.Weekday() != s.cfg.SummaryWeekday || t.Hour() < s.cfg.SummaryHour {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSummary != weekKey(t)
}

// MaybeRunSummary runs the weekly summary if it is due and reports whether
// it ran. A failed run is retried on the next check.
func (s *Scheduler) MaybeRunSummary(ctx context.Context) bool {
	now := s.now()
	if !s.SummaryDue(now) {
		return false
	}

	outcomes, err := s.runner.WeeklySummaries(ctx)
	if err != nil {
		s.logger.Error("scheduled weekly summary failed", "error", err)
		return false
	}

	s.mu.Lock()
	s.lastSummary = weekKey(now.UTC())
	s.mu.Unlock()
	s.logger.Info("scheduled weekly summary done", "users", len(outcomes))
	return true
}

func weekKey(t time.Time) int {
	year, week := t.ISOWeek()
	return year*100 + week
}
