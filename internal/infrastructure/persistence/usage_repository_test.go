package persistence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/socialstax/backend/internal/domain/billing"
	"github.com/socialstax/backend/internal/domain/shared"
)

func setupUsageTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&UsageRecordModel{})
	require.NoError(t, err)

	return db
}

func TestUsageRepository_FindByUserID(t *testing.T) {
	db := setupUsageTestDB(t)
	repo := NewUsageRepository(db)
	ctx := context.Background()

	t.Run("returns ErrNotFound for unknown user", func(t *testing.T) {
		_, err := repo.FindByUserID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("round-trips a saved record", func(t *testing.T) {
		userID := uuid.New()
		record, err := billing.NewUsageRecord(userID)
		require.NoError(t, err)
		require.NoError(t, record.Add(billing.ResourceAPICalls, decimal.NewFromInt(42)))

		require.NoError(t, repo.Save(ctx, record))

		found, err := repo.FindByUserID(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, record.ID, found.ID)
		assert.True(t, found.APICalls.Equal(decimal.NewFromInt(42)))
		assert.True(t, found.ContentGenerations.IsZero())
	})
}

func TestUsageRepository_Increment(t *testing.T) {
	db := setupUsageTestDB(t)
	repo := NewUsageRepository(db)
	ctx := context.Background()

	t.Run("creates record lazily on first increment", func(t *testing.T) {
		userID := uuid.New()

		err := repo.Increment(ctx, userID, billing.ResourceContentGenerations, decimal.NewFromInt(3))
		require.NoError(t, err)

		found, err := repo.FindByUserID(ctx, userID)
		require.NoError(t, err)
		assert.True(t, found.ContentGenerations.Equal(decimal.NewFromInt(3)))
	})

	t.Run("accumulates across increments", func(t *testing.T) {
		userID := uuid.New()

		require.NoError(t, repo.Increment(ctx, userID, billing.ResourceAPICalls, decimal.NewFromInt(10)))
		require.NoError(t, repo.Increment(ctx, userID, billing.ResourceAPICalls, decimal.NewFromInt(5)))

		found, err := repo.FindByUserID(ctx, userID)
		require.NoError(t, err)
		assert.True(t, found.APICalls.Equal(decimal.NewFromInt(15)))
	})

	t.Run("supports fractional minute amounts", func(t *testing.T) {
		userID := uuid.New()

		half := decimal.RequireFromString("0.5")
		require.NoError(t, repo.Increment(ctx, userID, billing.ResourceVoiceAssistantMinutes, half))
		require.NoError(t, repo.Increment(ctx, userID, billing.ResourceVoiceAssistantMinutes, half))

		found, err := repo.FindByUserID(ctx, userID)
		require.NoError(t, err)
		assert.True(t, found.VoiceAssistantMinutes.Equal(decimal.NewFromInt(1)))
	})

	t.Run("rejects invalid resource type", func(t *testing.T) {
		err := repo.Increment(ctx, uuid.New(), billing.ResourceType("bogus"), decimal.NewFromInt(1))
		assert.Error(t, err)
	})
}

func TestUsageRepository_TryConsume(t *testing.T) {
	db := setupUsageTestDB(t)
	repo := NewUsageRepository(db)
	ctx := context.Background()

	t.Run("allows consumption up to the ceiling", func(t *testing.T) {
		userID := uuid.New()
		require.NoError(t, repo.Increment(ctx, userID, billing.ResourceImageGenerations, decimal.NewFromInt(9)))

		consumed, err := repo.TryConsume(ctx, userID, billing.ResourceImageGenerations, decimal.NewFromInt(1), 10)
		require.NoError(t, err)
		assert.True(t, consumed)

		found, err := repo.FindByUserID(ctx, userID)
		require.NoError(t, err)
		assert.True(t, found.ImageGenerations.Equal(decimal.NewFromInt(10)))
	})

	t.Run("denies consumption past the ceiling", func(t *testing.T) {
		userID := uuid.New()
		require.NoError(t, repo.Increment(ctx, userID, billing.ResourceImageGenerations, decimal.NewFromInt(10)))

		consumed, err := repo.TryConsume(ctx, userID, billing.ResourceImageGenerations, decimal.NewFromInt(1), 10)
		require.NoError(t, err)
		assert.False(t, consumed)

		// Counter must be untouched after a denial
		found, err := repo.FindByUserID(ctx, userID)
		require.NoError(t, err)
		assert.True(t, found.ImageGenerations.Equal(decimal.NewFromInt(10)))
	})

	t.Run("creates record lazily for first consumption", func(t *testing.T) {
		userID := uuid.New()

		consumed, err := repo.TryConsume(ctx, userID, billing.ResourceAPICalls, decimal.NewFromInt(1), 10)
		require.NoError(t, err)
		assert.True(t, consumed)
	})

	t.Run("unlimited ceiling always succeeds", func(t *testing.T) {
		userID := uuid.New()
		require.NoError(t, repo.Increment(ctx, userID, billing.ResourceAPICalls, decimal.NewFromInt(1_000_000)))

		consumed, err := repo.TryConsume(ctx, userID, billing.ResourceAPICalls, decimal.NewFromInt(1), billing.UnlimitedLimit)
		require.NoError(t, err)
		assert.True(t, consumed)
	})

	t.Run("concurrent consumers never exceed the ceiling", func(t *testing.T) {
		userID := uuid.New()
		const limit = 10
		const attempts = 25

		var wg sync.WaitGroup
		results := make(chan bool, attempts)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				consumed, err := repo.TryConsume(ctx, userID, billing.ResourceContentGenerations, decimal.NewFromInt(1), limit)
				if err != nil {
					// SQLite serializes writers; a busy error counts as a denial here
					results <- false
					return
				}
				results <- consumed
			}()
		}
		wg.Wait()
		close(results)

		succeeded := 0
		for consumed := range results {
			if consumed {
				succeeded++
			}
		}
		assert.LessOrEqual(t, succeeded, limit)

		found, err := repo.FindByUserID(ctx, userID)
		require.NoError(t, err)
		assert.True(t, found.ContentGenerations.LessThanOrEqual(decimal.NewFromInt(limit)))
	})
}

func TestUsageRepository_ListUserIDs(t *testing.T) {
	db := setupUsageTestDB(t)
	repo := NewUsageRepository(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Increment(ctx, uuid.New(), billing.ResourceAPICalls, decimal.NewFromInt(1)))
	}

	t.Run("pages are stable and disjoint", func(t *testing.T) {
		first, err := repo.ListUserIDs(ctx, 0, 3)
		require.NoError(t, err)
		second, err := repo.ListUserIDs(ctx, 3, 3)
		require.NoError(t, err)

		assert.Len(t, first, 3)
		assert.Len(t, second, 2)

		seen := make(map[uuid.UUID]bool)
		for _, id := range append(first, second...) {
			assert.False(t, seen[id], "user ID repeated across pages")
			seen[id] = true
		}
	})

	t.Run("offset past the end returns empty", func(t *testing.T) {
		ids, err := repo.ListUserIDs(ctx, 100, 10)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

func TestUsageRepository_ResetBatch(t *testing.T) {
	db := setupUsageTestDB(t)
	repo := NewUsageRepository(db)
	ctx := context.Background()

	t.Run("zeroes counters and stamps last reset", func(t *testing.T) {
		userIDs := make([]uuid.UUID, 3)
		for i := range userIDs {
			userIDs[i] = uuid.New()
			require.NoError(t, repo.Increment(ctx, userIDs[i], billing.ResourceAPICalls, decimal.NewFromInt(int64(i+1))))
		}

		resetAt := time.Now().Add(time.Hour).Truncate(time.Second)
		count, err := repo.ResetBatch(ctx, userIDs, resetAt)
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		for _, userID := range userIDs {
			found, err := repo.FindByUserID(ctx, userID)
			require.NoError(t, err)
			assert.True(t, found.IsZero())
			assert.WithinDuration(t, resetAt, found.LastReset, time.Second)
		}
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		count, err := repo.ResetBatch(ctx, nil, time.Now())
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("counts only existing records", func(t *testing.T) {
		existing := uuid.New()
		require.NoError(t, repo.Increment(ctx, existing, billing.ResourceAPICalls, decimal.NewFromInt(1)))

		count, err := repo.ResetBatch(ctx, []uuid.UUID{existing, uuid.New()}, time.Now())
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}
