package seen

import (
	"context"
	"time"
)

// LayeredStore fronts a durable backend with a memory layer so repeated
// lookups within a run avoid round trips. The back store stays
// authoritative; Acquire never consults the front.
type LayeredStore struct {
	front      Store
	back       Store
	promoteTTL time.Duration
}

// NewLayeredStore creates a layered seen store. promoteTTL bounds how long
// a back-store hit is remembered in the front layer.
func NewLayeredStore(front, back Store, promoteTTL time.Duration) *LayeredStore {
	return &LayeredStore{front: front, back: back, promoteTTL: promoteTTL}
}

// Seen checks the memory layer first, then the backend, promoting hits.
func (s *LayeredStore) Seen(ctx context.Context, key string) (bool, error) {
	if found, err := s.front.Seen(ctx, key); err == nil && found {
		return true, nil
	}

	found, err := s.back.Seen(ctx, key)
	if err != nil {
		return false, err
	}
	if found {
		_ = s.front.Mark(ctx, key, s.promoteTTL)
	}
	return found, nil
}

// Mark records the key in both layers.
func (s *LayeredStore) Mark(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.back.Mark(ctx, key, ttl); err != nil {
		return err
	}
	return s.front.Mark(ctx, key, s.promoteTTL)
}

// Acquire delegates to the authoritative backend.
func (s *LayeredStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.back.Acquire(ctx, key, ttl)
}

// Release removes the key from both layers.
func (s *LayeredStore) Release(ctx context.Context, key string) error {
	_ = s.front.Release(ctx, key)
	return s.back.Release(ctx, key)
}
