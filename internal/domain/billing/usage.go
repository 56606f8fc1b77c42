package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/socialstax/backend/internal/domain/shared"
)

// UsageRecord holds the per-user counters for the current billing cycle.
// There is exactly one record per user; it is created lazily (all zero)
// on the first metered action and zeroed again by the monthly reset.
// Counters never go negative: decrementing is not a supported operation.
type UsageRecord struct {
	shared.BaseEntity
	UserID                uuid.UUID
	ContentGenerations    decimal.Decimal
	ImageGenerations      decimal.Decimal
	VoiceAssistantMinutes decimal.Decimal
	APICalls              decimal.Decimal
	LastReset             time.Time
}

// NewUsageRecord creates an all-zero usage record for a user
func NewUsageRecord(userID uuid.UUID) (*UsageRecord, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "User ID cannot be empty")
	}
	return &UsageRecord{
		BaseEntity:            shared.NewBaseEntity(),
		UserID:                userID,
		ContentGenerations:    decimal.Zero,
		ImageGenerations:      decimal.Zero,
		VoiceAssistantMinutes: decimal.Zero,
		APICalls:              decimal.Zero,
		LastReset:             time.Now(),
	}, nil
}

// CounterFor returns the current counter for a resource type
func (u *UsageRecord) CounterFor(resource ResourceType) decimal.Decimal {
	switch resource {
	case ResourceContentGenerations:
		return u.ContentGenerations
	case ResourceImageGenerations:
		return u.ImageGenerations
	case ResourceVoiceAssistantMinutes:
		return u.VoiceAssistantMinutes
	case ResourceAPICalls:
		return u.APICalls
	default:
		return decimal.Zero
	}
}

// Add increments the counter for a resource type. Negative amounts are
// rejected: usage only moves forward between resets.
func (u *UsageRecord) Add(resource ResourceType, amount decimal.Decimal) error {
	if !resource.IsValid() {
		return shared.NewDomainError("VALIDATION_ERROR", "Invalid resource type")
	}
	if amount.IsNegative() {
		return shared.NewDomainError("VALIDATION_ERROR", "Usage amount cannot be negative")
	}

	switch resource {
	case ResourceContentGenerations:
		u.ContentGenerations = u.ContentGenerations.Add(amount)
	case ResourceImageGenerations:
		u.ImageGenerations = u.ImageGenerations.Add(amount)
	case ResourceVoiceAssistantMinutes:
		u.VoiceAssistantMinutes = u.VoiceAssistantMinutes.Add(amount)
	case ResourceAPICalls:
		u.APICalls = u.APICalls.Add(amount)
	}
	u.Touch()
	return nil
}

// Reset zeroes all counters and advances LastReset. LastReset is
// monotonic: a reset timestamp earlier than the current one is ignored.
func (u *UsageRecord) Reset(now time.Time) {
	u.ContentGenerations = decimal.Zero
	u.ImageGenerations = decimal.Zero
	u.VoiceAssistantMinutes = decimal.Zero
	u.APICalls = decimal.Zero
	if now.After(u.LastReset) {
		u.LastReset = now
	}
	u.Touch()
}

// IsZero returns true if every counter is zero
func (u *UsageRecord) IsZero() bool {
	return u.ContentGenerations.IsZero() &&
		u.ImageGenerations.IsZero() &&
		u.VoiceAssistantMinutes.IsZero() &&
		u.APICalls.IsZero()
}
