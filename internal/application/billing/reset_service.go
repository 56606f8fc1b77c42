package billing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/socialstax/backend/internal/domain/billing"
)

// Batch size chosen so a full reset of a large user base stays in bounded
// memory while keeping transaction count low.
const defaultResetBatchSize = 200

// ResetResult contains the outcome of a reset run
type ResetResult struct {
	UsersReset int       `json:"users_reset"`
	Batches    int       `json:"batches"`
	ResetAt    time.Time `json:"reset_at"`
	Duration   string    `json:"duration"`
}

// ResetService zeroes every user's usage counters at the start of a
// billing cycle. Resets run in batches; a failure mid-run leaves earlier
// batches reset, and the run can be retried because zeroing an already
// zeroed record is harmless.
type ResetService struct {
	usageRepo billing.UsageRepository
	logger    *zap.Logger
	batchSize int
}

// NewResetService creates a new ResetService
func NewResetService(usageRepo billing.UsageRepository, logger *zap.Logger) *ResetService {
	return &ResetService{
		usageRepo: usageRepo,
		logger:    logger,
		batchSize: defaultResetBatchSize,
	}
}

// WithBatchSize overrides the page size used when walking usage records.
// Non-positive values keep the default.
func (s *ResetService) WithBatchSize(n int) *ResetService {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// ResetAll zeroes the counters of every user with a usage record and
// returns how many records were reset
func (s *ResetService) ResetAll(ctx context.Context, resetAt time.Time) (*ResetResult, error) {
	start := time.Now()
	result := &ResetResult{ResetAt: resetAt}

	s.logger.Info("Starting usage reset", zap.Time("reset_at", resetAt))

	// Offset pagination over user IDs. The listing is ordered by user ID
	// and resets do not remove rows, so advancing the offset by the page
	// size visits every record exactly once.
	offset := 0
	for {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		userIDs, err := s.usageRepo.ListUserIDs(ctx, offset, s.batchSize)
		if err != nil {
			s.logger.Error("Failed to list users for reset",
				zap.Int("offset", offset),
				zap.Error(err))
			return result, err
		}
		if len(userIDs) == 0 {
			break
		}

		reset, err := s.usageRepo.ResetBatch(ctx, userIDs, resetAt)
		if err != nil {
			s.logger.Error("Failed to reset usage batch",
				zap.Int("offset", offset),
				zap.Int("batch_size", len(userIDs)),
				zap.Error(err))
			return result, err
		}

		result.UsersReset += reset
		result.Batches++
		offset += len(userIDs)

		if len(userIDs) < s.batchSize {
			break
		}
	}

	result.Duration = time.Since(start).String()

	s.logger.Info("Usage reset completed",
		zap.Int("users_reset", result.UsersReset),
		zap.Int("batches", result.Batches),
		zap.String("duration", result.Duration))

	return result, nil
}
