package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/socialstax/backend/internal/infrastructure/config"
)

// Stripe retries webhooks for up to three days; remembering events a bit
// longer than that covers the full retry window.
const defaultDedupeTTL = 96 * time.Hour

// RedisDedupeStore remembers processed webhook event IDs in Redis so every
// instance behind the load balancer shares idempotency state.
type RedisDedupeStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisDedupeStore creates a Redis-backed dedupe store and verifies the
// connection
func NewRedisDedupeStore(cfg config.RedisConfig) (*RedisDedupeStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisDedupeStore{
		client:    client,
		keyPrefix: "webhook:event:",
		ttl:       defaultDedupeTTL,
	}, nil
}

// NewRedisDedupeStoreWithClient creates a store with an existing Redis client
func NewRedisDedupeStoreWithClient(client *redis.Client, keyPrefix string) *RedisDedupeStore {
	if keyPrefix == "" {
		keyPrefix = "webhook:event:"
	}
	return &RedisDedupeStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       defaultDedupeTTL,
	}
}

// MarkProcessed records an event ID atomically via SETNX.
// Returns true if the event was newly recorded, false if already seen.
func (s *RedisDedupeStore) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	key := s.keyPrefix + eventID

	result, err := s.client.SetNX(ctx, key, "1", s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark event as processed: %w", err)
	}

	return result, nil
}

// Close closes the Redis client
func (s *RedisDedupeStore) Close() error {
	return s.client.Close()
}
