package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryDedupeStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryDedupeStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("marks new event as processed", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "evt_1")
		require.NoError(t, err)
		assert.True(t, isNew, "new event should return true")
	})

	t.Run("returns false for already processed event", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "evt_2")
		require.NoError(t, err)
		assert.True(t, isNew)

		isNew, err = store.MarkProcessed(ctx, "evt_2")
		require.NoError(t, err)
		assert.False(t, isNew, "already processed event should return false")
	})

	t.Run("allows reprocessing after expiration", func(t *testing.T) {
		store := NewInMemoryDedupeStore()
		defer store.Close()
		store.ttl = 10 * time.Millisecond

		isNew, err := store.MarkProcessed(ctx, "evt_3")
		require.NoError(t, err)
		assert.True(t, isNew)

		time.Sleep(20 * time.Millisecond)

		isNew, err = store.MarkProcessed(ctx, "evt_3")
		require.NoError(t, err)
		assert.True(t, isNew, "expired event should be reprocessable")
	})
}

func TestInMemoryDedupeStore_Cleanup(t *testing.T) {
	store := NewInMemoryDedupeStore()
	defer store.Close()

	ctx := context.Background()

	store.ttl = 10 * time.Millisecond
	store.MarkProcessed(ctx, "short-lived-1")
	store.MarkProcessed(ctx, "short-lived-2")
	store.ttl = 1 * time.Hour
	store.MarkProcessed(ctx, "long-lived")

	assert.Equal(t, 3, store.Size())

	time.Sleep(20 * time.Millisecond)

	store.cleanup()

	assert.Equal(t, 1, store.Size())
}

func TestInMemoryDedupeStore_ConcurrentAccess(t *testing.T) {
	store := NewInMemoryDedupeStore()
	defer store.Close()

	ctx := context.Background()
	const numGoroutines = 100
	const eventID = "evt_concurrent"

	results := make(chan bool, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			isNew, err := store.MarkProcessed(ctx, eventID)
			if err != nil {
				results <- false
			} else {
				results <- isNew
			}
		}()
	}

	newCount := 0
	duplicateCount := 0
	for i := 0; i < numGoroutines; i++ {
		if <-results {
			newCount++
		} else {
			duplicateCount++
		}
	}

	// Exactly one goroutine may win the first-write race
	assert.Equal(t, 1, newCount)
	assert.Equal(t, numGoroutines-1, duplicateCount)
}

func TestInMemoryDedupeStore_Close(t *testing.T) {
	store := NewInMemoryDedupeStore()

	err := store.Close()
	assert.NoError(t, err)

	// Multiple closes should be safe
	err = store.Close()
	assert.NoError(t, err)
}
