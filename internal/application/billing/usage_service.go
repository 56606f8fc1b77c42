package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/socialstax/backend/internal/domain/billing"
	"github.com/socialstax/backend/internal/domain/shared"
)

// UsageService records metered consumption after the fact. Unlike
// TryConsume it never refuses: recording happens even when the user is
// already over their ceiling, so post-hoc metering (voice minutes reported
// at call end) is not lost.
type UsageService struct {
	usageRepo billing.UsageRepository
	logger    *zap.Logger
}

// NewUsageService creates a new UsageService
func NewUsageService(usageRepo billing.UsageRepository, logger *zap.Logger) *UsageService {
	return &UsageService{
		usageRepo: usageRepo,
		logger:    logger,
	}
}

// Increment adds amount to the user's counter for a resource, creating the
// usage record on first use. Amount zero is accepted and still materializes
// the record.
func (s *UsageService) Increment(ctx context.Context, userID uuid.UUID, resource billing.ResourceType, amount decimal.Decimal) error {
	if userID == uuid.Nil {
		return shared.NewDomainError("VALIDATION_ERROR", "User ID cannot be empty")
	}
	if !resource.IsValid() {
		return shared.NewDomainError("VALIDATION_ERROR", "Invalid resource type")
	}
	if amount.IsNegative() {
		return shared.NewDomainError("VALIDATION_ERROR", "Amount cannot be negative")
	}
	if !resource.IsFractional() && !amount.IsInteger() {
		return shared.NewDomainError("VALIDATION_ERROR", "Amount must be a whole number for this resource")
	}

	if err := s.usageRepo.Increment(ctx, userID, resource, amount); err != nil {
		s.logger.Error("Failed to increment usage",
			zap.String("user_id", userID.String()),
			zap.String("resource", string(resource)),
			zap.String("amount", amount.String()),
			zap.Error(err))
		return err
	}

	s.logger.Debug("Usage incremented",
		zap.String("user_id", userID.String()),
		zap.String("resource", string(resource)),
		zap.String("amount", amount.String()))

	return nil
}
