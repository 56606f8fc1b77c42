package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appbilling "github.com/socialstax/backend/internal/application/billing"
)

type fakeResetRunner struct {
	calls atomic.Int32
	err   error
}

func (f *fakeResetRunner) ResetAll(ctx context.Context, resetAt time.Time) (*appbilling.ResetResult, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &appbilling.ResetResult{UsersReset: 42, Batches: 1, ResetAt: resetAt}, nil
}

func newTestScheduler(runner ResetRunner, now time.Time) *MonthlyResetScheduler {
	s := NewMonthlyResetScheduler(MonthlyResetConfig{Hour: now.UTC().Hour(), CheckInterval: time.Minute}, runner, zap.NewNop())
	s.now = func() time.Time { return now }
	return s
}

func TestMonthlyResetScheduler_CheckAndTrigger(t *testing.T) {
	ctx := context.Background()
	firstOfMonth := time.Date(2026, 9, 1, 3, 15, 0, 0, time.UTC)

	t.Run("fires on the first of the month at the configured hour", func(t *testing.T) {
		runner := &fakeResetRunner{}
		s := newTestScheduler(runner, firstOfMonth)

		s.checkAndTrigger(ctx)

		assert.Equal(t, int32(1), runner.calls.Load())
	})

	t.Run("runs at most once per month", func(t *testing.T) {
		runner := &fakeResetRunner{}
		s := newTestScheduler(runner, firstOfMonth)

		s.checkAndTrigger(ctx)
		s.checkAndTrigger(ctx)
		s.checkAndTrigger(ctx)

		assert.Equal(t, int32(1), runner.calls.Load())
	})

	t.Run("skips other days", func(t *testing.T) {
		runner := &fakeResetRunner{}
		s := newTestScheduler(runner, firstOfMonth.AddDate(0, 0, 14))

		s.checkAndTrigger(ctx)

		assert.Equal(t, int32(0), runner.calls.Load())
	})

	t.Run("skips other hours", func(t *testing.T) {
		runner := &fakeResetRunner{}
		s := newTestScheduler(runner, firstOfMonth)
		s.config.Hour = (firstOfMonth.Hour() + 1) % 24

		s.checkAndTrigger(ctx)

		assert.Equal(t, int32(0), runner.calls.Load())
	})

	t.Run("retries within the window after a failure", func(t *testing.T) {
		runner := &fakeResetRunner{err: assert.AnError}
		s := newTestScheduler(runner, firstOfMonth)

		s.checkAndTrigger(ctx)
		assert.Equal(t, int32(1), runner.calls.Load())

		runner.err = nil
		s.checkAndTrigger(ctx)
		assert.Equal(t, int32(2), runner.calls.Load())
	})

	t.Run("fires again in the next month", func(t *testing.T) {
		runner := &fakeResetRunner{}
		s := newTestScheduler(runner, firstOfMonth)

		s.checkAndTrigger(ctx)

		nextMonth := firstOfMonth.AddDate(0, 1, 0)
		s.now = func() time.Time { return nextMonth }
		s.checkAndTrigger(ctx)

		assert.Equal(t, int32(2), runner.calls.Load())
	})
}

func TestMonthlyResetScheduler_TriggerNow(t *testing.T) {
	runner := &fakeResetRunner{}
	s := newTestScheduler(runner, time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC))

	result, err := s.TriggerNow(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 42, result.UsersReset)
	assert.Equal(t, int32(1), runner.calls.Load())
}

func TestMonthlyResetScheduler_StartStop(t *testing.T) {
	runner := &fakeResetRunner{}
	s := NewMonthlyResetScheduler(MonthlyResetConfig{Hour: 0, CheckInterval: 10 * time.Millisecond}, runner, zap.NewNop())
	s.now = func() time.Time { return time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC) }

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	// Second start is a no-op
	require.NoError(t, s.Start(ctx))

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))
	// Second stop is a no-op
	require.NoError(t, s.Stop(stopCtx))
}
