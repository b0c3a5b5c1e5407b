package seen

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore implements Store in process memory. State does not survive a
// restart; use the Redis or disk backend when cross-process memory matters.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates a memory-backed seen store.
func NewMemoryStore(defaultTTL, cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Seen reports whether the key is currently marked.
func (s *MemoryStore) Seen(ctx context.Context, key string) (bool, error) {
	_, found := s.cache.Get(key)
	return found, nil
}

// Mark records the key with the given TTL.
func (s *MemoryStore) Mark(ctx context.Context, key string, ttl time.Duration) error {
	s.cache.Set(key, true, ttl)
	return nil
}

// Acquire records the key only if absent. go-cache's Add is atomic, which
// makes this usable as a single-process lease.
func (s *MemoryStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := s.cache.Add(key, true, ttl); err != nil {
		return false, nil
	}
	return true, nil
}

// Release removes the key.
func (s *MemoryStore) Release(ctx context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}
