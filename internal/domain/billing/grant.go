package billing

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/socialstax/backend/internal/domain/shared"
)

// CustomLimits carries optional per-resource ceiling overrides attached to
// a free access grant. A nil field means "use the granted plan's ceiling".
type CustomLimits struct {
	ContentGenerations    *int64
	ImageGenerations      *int64
	VoiceAssistantMinutes *int64
	APICalls              *int64
}

// IsEmpty returns true if no override is set
func (c CustomLimits) IsEmpty() bool {
	return c.ContentGenerations == nil &&
		c.ImageGenerations == nil &&
		c.VoiceAssistantMinutes == nil &&
		c.APICalls == nil
}

// OverrideFor returns the override for a resource type, if set
func (c CustomLimits) OverrideFor(resource ResourceType) (int64, bool) {
	var p *int64
	switch resource {
	case ResourceContentGenerations:
		p = c.ContentGenerations
	case ResourceImageGenerations:
		p = c.ImageGenerations
	case ResourceVoiceAssistantMinutes:
		p = c.VoiceAssistantMinutes
	case ResourceAPICalls:
		p = c.APICalls
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Apply merges the overrides into plan limits and returns the result
func (c CustomLimits) Apply(base PlanLimits) PlanLimits {
	merged := base
	if c.ContentGenerations != nil {
		merged.ContentGenerations = *c.ContentGenerations
	}
	if c.ImageGenerations != nil {
		merged.ImageGenerations = *c.ImageGenerations
	}
	if c.VoiceAssistantMinutes != nil {
		merged.VoiceAssistantMinutes = *c.VoiceAssistantMinutes
	}
	if c.APICalls != nil {
		merged.APICalls = *c.APICalls
	}
	return merged
}

// FreeAccessGrant gives a user the quota ceilings of a plan tier without a
// paid subscription. An active grant takes precedence over the user's
// subscription plan when evaluating quotas.
type FreeAccessGrant struct {
	shared.BaseEntity
	UserID       uuid.UUID
	Email        string
	PlanTier     PlanTier
	Reason       string
	GrantedBy    string
	GrantedAt    time.Time
	ExpiresAt    *time.Time
	RevokedAt    *time.Time
	CustomLimits CustomLimits
}

// NewFreeAccessGrant creates a grant for a user. Expiry is optional; a nil
// expiresAt means the grant lasts until revoked.
func NewFreeAccessGrant(userID uuid.UUID, email string, tier PlanTier, reason, grantedBy string, expiresAt *time.Time) (*FreeAccessGrant, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "User ID cannot be empty")
	}
	if email == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Email cannot be empty")
	}
	if !tier.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Invalid plan tier")
	}
	now := time.Now()
	if expiresAt != nil && !expiresAt.After(now) {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Expiry must be in the future")
	}
	return &FreeAccessGrant{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     userID,
		Email:      email,
		PlanTier:   tier,
		Reason:     reason,
		GrantedBy:  grantedBy,
		GrantedAt:  now,
		ExpiresAt:  expiresAt,
	}, nil
}

// IsActiveAt reports whether the grant is in force at the given instant.
// A grant is active until it is revoked or its expiry passes.
func (g *FreeAccessGrant) IsActiveAt(now time.Time) bool {
	if g.RevokedAt != nil {
		return false
	}
	if g.ExpiresAt != nil && !g.ExpiresAt.After(now) {
		return false
	}
	return true
}

// Revoke marks the grant as revoked. Revoking an already revoked grant is
// a no-op so the operation stays idempotent.
func (g *FreeAccessGrant) Revoke(now time.Time) {
	if g.RevokedAt != nil {
		return
	}
	t := now
	g.RevokedAt = &t
	g.UpdatedAt = now
}

// EffectiveLimits returns the grant's plan ceilings with any custom
// overrides applied.
func (g *FreeAccessGrant) EffectiveLimits(table LimitTable) PlanLimits {
	return g.CustomLimits.Apply(table.LimitsFor(g.PlanTier))
}

// SelectActiveGrant picks the grant that governs quota evaluation at the
// given instant: the most recently granted active grant, breaking ties by
// entity ID so the choice is deterministic. Returns nil if none is active.
func SelectActiveGrant(grants []*FreeAccessGrant, now time.Time) *FreeAccessGrant {
	active := make([]*FreeAccessGrant, 0, len(grants))
	for _, g := range grants {
		if g.IsActiveAt(now) {
			active = append(active, g)
		}
	}
	if len(active) == 0 {
		return nil
	}
	sort.Slice(active, func(i, j int) bool {
		if !active[i].GrantedAt.Equal(active[j].GrantedAt) {
			return active[i].GrantedAt.After(active[j].GrantedAt)
		}
		return active[i].ID.String() > active[j].ID.String()
	})
	return active[0]
}
