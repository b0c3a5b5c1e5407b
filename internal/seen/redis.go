package seen

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis. The production backend: entries
// expire server-side via key TTL, and SetNX gives a proper cross-process
// run lease.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed seen store.
func NewRedisStore(addr, password string, db int) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStore{client: rdb}
}

// Seen reports whether the key exists and has not expired.
func (s *RedisStore) Seen(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// Mark records the key with the given TTL.
func (s *RedisStore) Mark(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Acquire records the key only if absent (SET NX with TTL).
func (s *RedisStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

// Release removes the key.
func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
