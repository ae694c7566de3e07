package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a WindowStore backed by Redis, for deployments where
// multiple gateway instances must share quota state. INCR is atomic on the
// server, so concurrent instances cannot double-admit.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a store over the given client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Incr increments the window counter, attaching the window expiry when the
// key is fresh. The reset timestamp is derived from the key's remaining TTL.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("incr %s: %w", key, err)
	}

	if count == 1 {
		if err := s.client.PExpire(ctx, key, window).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("pexpire %s: %w", key, err)
		}
		return count, time.Now().Add(window), nil
	}

	ttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("pttl %s: %w", key, err)
	}
	if ttl < 0 {
		// Expiry was lost (e.g. a flushed key); reattach it rather than
		// letting the counter grow forever.
		if err := s.client.PExpire(ctx, key, window).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("pexpire %s: %w", key, err)
		}
		ttl = window
	}

	return count, time.Now().Add(ttl), nil
}
