package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	appbilling "github.com/socialstax/backend/internal/application/billing"
)

// ResetRunner executes a full usage reset. Implemented by the billing
// reset service.
type ResetRunner interface {
	ResetAll(ctx context.Context, resetAt time.Time) (*appbilling.ResetResult, error)
}

// MonthlyResetConfig holds configuration for the monthly reset scheduler
type MonthlyResetConfig struct {
	// Hour of day (UTC) on the first of the month when the reset fires
	Hour int

	// CheckInterval is how often to check if it's time to run
	CheckInterval time.Duration
}

// DefaultMonthlyResetConfig returns default scheduler configuration
func DefaultMonthlyResetConfig() MonthlyResetConfig {
	return MonthlyResetConfig{
		Hour:          0,
		CheckInterval: time.Minute,
	}
}

// MonthlyResetScheduler fires the usage reset once per calendar month, on
// the first day of the month at the configured UTC hour. Billing cycles
// are calendar months, so every user resets on the same boundary.
type MonthlyResetScheduler struct {
	config MonthlyResetConfig
	runner ResetRunner
	logger *zap.Logger
	now    func() time.Time

	cancel       context.CancelFunc
	wg           sync.WaitGroup
	mu           sync.Mutex
	isRunning    bool
	lastRunMonth string // "2006-01" of the last completed run
}

// NewMonthlyResetScheduler creates a new monthly reset scheduler
func NewMonthlyResetScheduler(config MonthlyResetConfig, runner ResetRunner, logger *zap.Logger) *MonthlyResetScheduler {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	return &MonthlyResetScheduler{
		config: config,
		runner: runner,
		logger: logger,
		now:    time.Now,
	}
}

// Start starts the scheduler loop
func (s *MonthlyResetScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Monthly reset scheduler started",
		zap.Int("hour", s.config.Hour),
		zap.Duration("check_interval", s.config.CheckInterval),
	)

	return nil
}

// Stop stops the scheduler and waits for an in-flight run to finish
func (s *MonthlyResetScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Monthly reset scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *MonthlyResetScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkAndTrigger(ctx)
		}
	}
}

// checkAndTrigger runs the reset if we are inside the reset window and
// have not run yet this month. The window is the whole configured hour,
// so a missed tick or a restart does not skip the month.
func (s *MonthlyResetScheduler) checkAndTrigger(ctx context.Context) {
	now := s.now().UTC()

	if now.Day() != 1 || now.Hour() != s.config.Hour {
		return
	}

	currentMonth := now.Format("2006-01")
	s.mu.Lock()
	if s.lastRunMonth == currentMonth {
		s.mu.Unlock()
		return
	}
	s.lastRunMonth = currentMonth
	s.mu.Unlock()

	s.logger.Info("Monthly usage reset triggered", zap.String("month", currentMonth))

	result, err := s.runner.ResetAll(ctx, now)
	if err != nil {
		s.logger.Error("Monthly usage reset failed",
			zap.String("month", currentMonth),
			zap.Error(err),
		)
		// Allow a retry on the next tick within the window
		s.mu.Lock()
		s.lastRunMonth = ""
		s.mu.Unlock()
		return
	}

	s.logger.Info("Monthly usage reset completed",
		zap.String("month", currentMonth),
		zap.Int("users_reset", result.UsersReset),
		zap.Int("batches", result.Batches),
		zap.String("duration", result.Duration),
	)
}

// TriggerNow runs a reset immediately, outside the monthly schedule.
// Used by the admin endpoint for manual resets.
func (s *MonthlyResetScheduler) TriggerNow(ctx context.Context) (*appbilling.ResetResult, error) {
	return s.runner.ResetAll(ctx, s.now().UTC())
}
