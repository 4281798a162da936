package scheduler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ogulcanaydogan/budget-guardian/internal/scheduler"
	"github.com/ogulcanaydogan/budget-guardian/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	sweeps     atomic.Int32
	summaries  atomic.Int32
	summaryErr error
}

func (f *fakeRunner) Sweep(context.Context) ([]model.AlertOutcome, error) {
	f.sweeps.Add(1)
	return nil, nil
}

func (f *fakeRunner) WeeklySummaries(context.Context) ([]model.SummaryOutcome, error) {
	f.summaries.Add(1)
	return nil, f.summaryErr
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// 2024-05-13 is a Monday.
var monday9 = time.Date(2024, 5, 13, 9, 0, 0, 0, time.UTC)

func newScheduler(r scheduler.Runner, now *time.Time) *scheduler.Scheduler {
	cfg := scheduler.Config{SweepInterval: time.Hour, SummaryWeekday: time.Monday, SummaryHour: 9}
	return scheduler.New(r, cfg, quietLogger()).WithClock(func() time.Time { return *now })
}

func TestSummaryDue(t *testing.T) {
	now := monday9
	s := newScheduler(&fakeRunner{}, &now)

	assert.False(t, s.SummaryDue(monday9.Add(-time.Minute)), "before the hour")
	assert.True(t, s.SummaryDue(monday9))
	assert.True(t, s.SummaryDue(monday9.Add(10*time.Hour)), "later the same day")
	assert.False(t, s.SummaryDue(monday9.Add(24*time.Hour)), "tuesday")
}

func TestMaybeRunSummary_OncePerWeek(t *testing.T) {
	r := &fakeRunner{}
	now := monday9.Add(-time.Hour)
	s := newScheduler(r, &now)
	ctx := context.Background()

	assert.False(t, s.MaybeRunSummary(ctx))

	now = monday9.Add(5 * time.Minute)
	assert.True(t, s.MaybeRunSummary(ctx))
	now = monday9.Add(2 * time.Hour)
	assert.False(t, s.MaybeRunSummary(ctx))
	assert.Equal(t, int32(1), r.summaries.Load())

	now = monday9.Add(7 * 24 * time.Hour)
	assert.True(t, s.MaybeRunSummary(ctx))
	assert.Equal(t, int32(2), r.summaries.Load())
}

func TestMaybeRunSummary_RetriesAfterFailure(t *testing.T) {
	r := &fakeRunner{summaryErr: errors.New("db locked")}
	now := monday9
	s := newScheduler(r, &now)
	ctx := context.Background()

	assert.False(t, s.MaybeRunSummary(ctx))
	r.summaryErr = nil
	now = monday9.Add(5 * time.Minute)
	assert.True(t, s.MaybeRunSummary(ctx))
	assert.Equal(t, int32(2), r.summaries.Load())
}

func TestRun_SweepsAtStartAndStops(t *testing.T) {
	r := &fakeRunner{}
	now := monday9.Add(24 * time.Hour)
	s := newScheduler(r, &now)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return r.sweeps.Load() == 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Zero(t, r.summaries.Load())
}
