package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UsageRepository manages per-user usage records
type UsageRepository interface {
	// FindByUserID returns the usage record for a user, or
	// shared.ErrNotFound if none exists yet
	FindByUserID(ctx context.Context, userID uuid.UUID) (*UsageRecord, error)

	// Save persists a usage record (insert or update)
	Save(ctx context.Context, record *UsageRecord) error

	// Increment atomically adds amount to the counter for a resource,
	// creating an all-zero record first if the user has none
	Increment(ctx context.Context, userID uuid.UUID, resource ResourceType, amount decimal.Decimal) error

	// TryConsume atomically adds amount to the counter only if the
	// resulting total stays at or below limit. Returns true if the
	// consumption was applied. A limit of UnlimitedLimit always succeeds.
	TryConsume(ctx context.Context, userID uuid.UUID, resource ResourceType, amount decimal.Decimal, limit int64) (bool, error)

	// ListUserIDs returns user IDs with a usage record, paginated for
	// batch processing. Ordering is stable across pages.
	ListUserIDs(ctx context.Context, offset, limit int) ([]uuid.UUID, error)

	// ResetBatch zeroes the counters of the given users and stamps
	// LastReset. Returns the number of records actually reset.
	ResetBatch(ctx context.Context, userIDs []uuid.UUID, resetAt time.Time) (int, error)
}

// GrantRepository manages free access grants
type GrantRepository interface {
	// FindByID returns a grant by ID, or shared.ErrNotFound
	FindByID(ctx context.Context, id uuid.UUID) (*FreeAccessGrant, error)

	// Save persists a grant (insert or update)
	Save(ctx context.Context, grant *FreeAccessGrant) error

	// FindByUserID returns all grants for a user, most recent first
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*FreeAccessGrant, error)

	// List returns grants across all users, most recent first
	List(ctx context.Context, offset, limit int) ([]*FreeAccessGrant, error)

	// Count returns the total number of grants
	Count(ctx context.Context) (int64, error)
}
