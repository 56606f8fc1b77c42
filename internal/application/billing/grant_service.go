package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/socialstax/backend/internal/domain/billing"
	"github.com/socialstax/backend/internal/domain/identity"
	"github.com/socialstax/backend/internal/domain/shared"
)

// CreateGrantInput contains input for creating a free access grant
type CreateGrantInput struct {
	UserID       uuid.UUID
	Email        string
	PlanTier     billing.PlanTier
	Reason       string
	GrantedBy    string
	ExpiresAt    *time.Time
	CustomLimits billing.CustomLimits
}

// GrantListResult contains a page of grants with the total count
type GrantListResult struct {
	Grants []*billing.FreeAccessGrant
	Total  int64
}

// GrantService manages free access grants
type GrantService struct {
	grantRepo billing.GrantRepository
	userRepo  identity.UserRepository
	logger    *zap.Logger
}

// NewGrantService creates a new GrantService
func NewGrantService(grantRepo billing.GrantRepository, userRepo identity.UserRepository, logger *zap.Logger) *GrantService {
	return &GrantService{
		grantRepo: grantRepo,
		userRepo:  userRepo,
		logger:    logger,
	}
}

// CreateGrant issues a free access grant for a user. The grant target must
// be an existing user whose email matches the request, so a typo cannot
// silently grant the wrong account.
func (s *GrantService) CreateGrant(ctx context.Context, input CreateGrantInput) (*billing.FreeAccessGrant, error) {
	if input.UserID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "User ID cannot be empty")
	}
	if input.Email == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Email cannot be empty")
	}

	user, err := s.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("NOT_FOUND", "User not found")
		}
		s.logger.Error("Failed to find user", zap.Error(err))
		return nil, err
	}
	if user.Email != input.Email {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Email does not match the target user")
	}

	grant, err := billing.NewFreeAccessGrant(input.UserID, input.Email, input.PlanTier, input.Reason, input.GrantedBy, input.ExpiresAt)
	if err != nil {
		return nil, err
	}
	grant.CustomLimits = input.CustomLimits

	if err := s.grantRepo.Save(ctx, grant); err != nil {
		s.logger.Error("Failed to save grant", zap.Error(err))
		return nil, err
	}

	s.logger.Info("Free access grant created",
		zap.String("grant_id", grant.ID.String()),
		zap.String("user_id", input.UserID.String()),
		zap.String("plan_tier", string(input.PlanTier)),
		zap.String("granted_by", input.GrantedBy))

	return grant, nil
}

// RevokeGrant revokes a grant by ID. Revocation is idempotent: an already
// revoked grant is returned unchanged, and a missing grant succeeds with a
// nil result, so a retried delete never surfaces an error.
func (s *GrantService) RevokeGrant(ctx context.Context, grantID uuid.UUID) (*billing.FreeAccessGrant, error) {
	if grantID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Grant ID cannot be empty")
	}

	grant, err := s.grantRepo.FindByID(ctx, grantID)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, nil
		}
		s.logger.Error("Failed to find grant", zap.Error(err))
		return nil, err
	}

	if grant.RevokedAt != nil {
		return grant, nil
	}

	grant.Revoke(time.Now())
	if err := s.grantRepo.Save(ctx, grant); err != nil {
		s.logger.Error("Failed to save revoked grant", zap.Error(err))
		return nil, err
	}

	s.logger.Info("Free access grant revoked",
		zap.String("grant_id", grant.ID.String()),
		zap.String("user_id", grant.UserID.String()))

	return grant, nil
}

// ListGrants returns a page of grants across all users, most recent first
func (s *GrantService) ListGrants(ctx context.Context, offset, limit int) (*GrantListResult, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	grants, err := s.grantRepo.List(ctx, offset, limit)
	if err != nil {
		s.logger.Error("Failed to list grants", zap.Error(err))
		return nil, err
	}

	total, err := s.grantRepo.Count(ctx)
	if err != nil {
		s.logger.Error("Failed to count grants", zap.Error(err))
		return nil, err
	}

	return &GrantListResult{Grants: grants, Total: total}, nil
}

// ListGrantsForUser returns all grants for one user, most recent first
func (s *GrantService) ListGrantsForUser(ctx context.Context, userID uuid.UUID) ([]*billing.FreeAccessGrant, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "User ID cannot be empty")
	}
	return s.grantRepo.FindByUserID(ctx, userID)
}

// ActiveGrantFor returns the grant currently governing a user's quota, or
// nil if no grant is active
func (s *GrantService) ActiveGrantFor(ctx context.Context, userID uuid.UUID) (*billing.FreeAccessGrant, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "User ID cannot be empty")
	}

	grants, err := s.grantRepo.FindByUserID(ctx, userID)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}

	return billing.SelectActiveGrant(grants, time.Now()), nil
}
