package billing

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/socialstax/backend/internal/domain/billing"
	"github.com/socialstax/backend/internal/domain/identity"
	"github.com/socialstax/backend/internal/domain/shared"
)

// QuotaExceededError represents an error when a quota limit is exceeded
type QuotaExceededError struct {
	Resource     billing.ResourceType
	CurrentUsage decimal.Decimal
	Limit        int64
	Message      string
}

// Error implements the error interface
func (e *QuotaExceededError) Error() string {
	return e.Message
}

// HTTPStatusCode returns the HTTP status code for this error (429 Too Many Requests)
func (e *QuotaExceededError) HTTPStatusCode() int {
	return http.StatusTooManyRequests
}

// NewQuotaExceededError creates a new QuotaExceededError
func NewQuotaExceededError(resource billing.ResourceType, currentUsage decimal.Decimal, limit int64) *QuotaExceededError {
	return &QuotaExceededError{
		Resource:     resource,
		CurrentUsage: currentUsage,
		Limit:        limit,
		Message: fmt.Sprintf(
			"Quota exceeded for %s: usage %s of limit %d",
			resource.DisplayName(), currentUsage.String(), limit,
		),
	}
}

// QuotaCheckInput contains input for checking or consuming quota
type QuotaCheckInput struct {
	UserID   uuid.UUID
	Resource billing.ResourceType
	Amount   decimal.Decimal
}

// QuotaCheckResult contains the result of a quota check
type QuotaCheckResult struct {
	Allowed      bool
	Resource     billing.ResourceType
	CurrentUsage decimal.Decimal
	Limit        int64
	Unlimited    bool
	Remaining    decimal.Decimal
	GrantApplied bool
}

// ResourceUsageDTO contains usage detail for a single resource
type ResourceUsageDTO struct {
	Resource    string          `json:"resource"`
	DisplayName string          `json:"display_name"`
	Used        decimal.Decimal `json:"used"`
	Limit       int64           `json:"limit"`
	Unlimited   bool            `json:"unlimited"`
	Remaining   decimal.Decimal `json:"remaining"`
}

// UsageSummaryDTO contains the full usage picture for a user
type UsageSummaryDTO struct {
	UserID       uuid.UUID                   `json:"user_id"`
	Plan         string                      `json:"plan"`
	GrantApplied bool                        `json:"grant_applied"`
	LastReset    time.Time                   `json:"last_reset"`
	Resources    map[string]ResourceUsageDTO `json:"resources"`
}

// QuotaService evaluates and enforces per-user resource quotas.
// The limit table is injected at construction and never mutated, so
// evaluation needs no lock around plan lookups.
type QuotaService struct {
	usageRepo  billing.UsageRepository
	grantRepo  billing.GrantRepository
	userRepo   identity.UserRepository
	limitTable billing.LimitTable
	logger     *zap.Logger
}

// NewQuotaService creates a new QuotaService
func NewQuotaService(
	usageRepo billing.UsageRepository,
	grantRepo billing.GrantRepository,
	userRepo identity.UserRepository,
	limitTable billing.LimitTable,
	logger *zap.Logger,
) *QuotaService {
	return &QuotaService{
		usageRepo:  usageRepo,
		grantRepo:  grantRepo,
		userRepo:   userRepo,
		limitTable: limitTable,
		logger:     logger,
	}
}

// CanPerform checks whether a user may consume the given amount of a
// resource without recording anything. Amount zero is a pure availability
// probe and always allowed; consuming nothing satisfies any ceiling.
func (s *QuotaService) CanPerform(ctx context.Context, input QuotaCheckInput) (*QuotaCheckResult, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	limits, grantApplied, err := s.effectiveLimits(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	limit := limits.LimitFor(input.Resource)

	// Unlimited resources never touch the usage store
	if limit == billing.UnlimitedLimit {
		return &QuotaCheckResult{
			Allowed:      true,
			Resource:     input.Resource,
			CurrentUsage: decimal.Zero,
			Limit:        billing.UnlimitedLimit,
			Unlimited:    true,
			Remaining:    decimal.Zero,
			GrantApplied: grantApplied,
		}, nil
	}

	currentUsage, err := s.currentUsage(ctx, input.UserID, input.Resource)
	if err != nil {
		return nil, err
	}

	limitDec := decimal.NewFromInt(limit)
	projected := currentUsage.Add(input.Amount)

	result := &QuotaCheckResult{
		Resource:     input.Resource,
		CurrentUsage: currentUsage,
		Limit:        limit,
		Remaining:    decimal.Max(limitDec.Sub(currentUsage), decimal.Zero),
		GrantApplied: grantApplied,
	}

	if input.Amount.IsZero() {
		result.Allowed = true
	} else {
		result.Allowed = projected.LessThanOrEqual(limitDec)
	}

	if !result.Allowed {
		s.logger.Debug("Quota check denied",
			zap.String("user_id", input.UserID.String()),
			zap.String("resource", string(input.Resource)),
			zap.String("current_usage", currentUsage.String()),
			zap.Int64("limit", limit))
	}

	return result, nil
}

// TryConsume atomically checks and records consumption in one step.
// Concurrent callers can never push usage past the ceiling: the
// conditional update in the store either applies the full amount or
// nothing.
func (s *QuotaService) TryConsume(ctx context.Context, input QuotaCheckInput) (*QuotaCheckResult, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}
	if !input.Amount.IsPositive() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Consume amount must be positive")
	}

	limits, grantApplied, err := s.effectiveLimits(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	limit := limits.LimitFor(input.Resource)

	applied, err := s.usageRepo.TryConsume(ctx, input.UserID, input.Resource, input.Amount, limit)
	if err != nil {
		s.logger.Error("Failed to consume quota",
			zap.String("user_id", input.UserID.String()),
			zap.String("resource", string(input.Resource)),
			zap.Error(err))
		return nil, err
	}

	result := &QuotaCheckResult{
		Allowed:      applied,
		Resource:     input.Resource,
		Limit:        limit,
		Unlimited:    limit == billing.UnlimitedLimit,
		GrantApplied: grantApplied,
	}

	if result.Unlimited {
		return result, nil
	}

	currentUsage, err := s.currentUsage(ctx, input.UserID, input.Resource)
	if err != nil {
		return nil, err
	}
	result.CurrentUsage = currentUsage
	result.Remaining = decimal.Max(decimal.NewFromInt(limit).Sub(currentUsage), decimal.Zero)

	return result, nil
}

// GetUsage returns the full usage summary for a user across all resources
func (s *QuotaService) GetUsage(ctx context.Context, userID uuid.UUID) (*UsageSummaryDTO, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "User ID cannot be empty")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.ErrNotFound
		}
		s.logger.Error("Failed to find user", zap.Error(err))
		return nil, err
	}

	limits, grantApplied, err := s.effectiveLimits(ctx, userID)
	if err != nil {
		return nil, err
	}

	record, err := s.usageRepo.FindByUserID(ctx, userID)
	if err != nil && err != shared.ErrNotFound {
		s.logger.Error("Failed to load usage record", zap.Error(err))
		return nil, err
	}

	summary := &UsageSummaryDTO{
		UserID:       userID,
		Plan:         string(user.Plan),
		GrantApplied: grantApplied,
		Resources:    make(map[string]ResourceUsageDTO, len(billing.AllResourceTypes())),
	}
	if record != nil {
		summary.LastReset = record.LastReset
	}

	for _, resource := range billing.AllResourceTypes() {
		used := decimal.Zero
		if record != nil {
			used = record.CounterFor(resource)
		}
		limit := limits.LimitFor(resource)

		detail := ResourceUsageDTO{
			Resource:    string(resource),
			DisplayName: resource.DisplayName(),
			Used:        used,
			Limit:       limit,
			Unlimited:   limit == billing.UnlimitedLimit,
		}
		if !detail.Unlimited {
			detail.Remaining = decimal.Max(decimal.NewFromInt(limit).Sub(used), decimal.Zero)
		}
		summary.Resources[string(resource)] = detail
	}

	return summary, nil
}

// effectiveLimits resolves the ceilings that govern a user right now:
// the newest active grant wins over the subscription plan.
func (s *QuotaService) effectiveLimits(ctx context.Context, userID uuid.UUID) (billing.PlanLimits, bool, error) {
	grants, err := s.grantRepo.FindByUserID(ctx, userID)
	if err != nil && err != shared.ErrNotFound {
		s.logger.Error("Failed to load grants", zap.Error(err))
		return billing.PlanLimits{}, false, err
	}

	if grant := billing.SelectActiveGrant(grants, time.Now()); grant != nil {
		return grant.EffectiveLimits(s.limitTable), true, nil
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if err == shared.ErrNotFound {
			return billing.PlanLimits{}, false, shared.ErrNotFound
		}
		s.logger.Error("Failed to find user", zap.Error(err))
		return billing.PlanLimits{}, false, err
	}

	return s.limitTable.LimitsFor(user.Plan), false, nil
}

func (s *QuotaService) currentUsage(ctx context.Context, userID uuid.UUID, resource billing.ResourceType) (decimal.Decimal, error) {
	record, err := s.usageRepo.FindByUserID(ctx, userID)
	if err != nil {
		// No record yet means no usage yet
		if err == shared.ErrNotFound {
			return decimal.Zero, nil
		}
		s.logger.Error("Failed to load usage record", zap.Error(err))
		return decimal.Zero, err
	}
	return record.CounterFor(resource), nil
}

func (s *QuotaService) validateInput(input QuotaCheckInput) error {
	if input.UserID == uuid.Nil {
		return shared.NewDomainError("VALIDATION_ERROR", "User ID cannot be empty")
	}
	if !input.Resource.IsValid() {
		return shared.NewDomainError("VALIDATION_ERROR", "Invalid resource type")
	}
	if input.Amount.IsNegative() {
		return shared.NewDomainError("VALIDATION_ERROR", "Amount cannot be negative")
	}
	if !input.Resource.IsFractional() && !input.Amount.IsInteger() {
		return shared.NewDomainError("VALIDATION_ERROR", "Amount must be a whole number for this resource")
	}
	return nil
}
