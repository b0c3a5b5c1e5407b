// Package seen is the time-bounded membership set behind deduplication:
// once a fingerprint is marked, it stays seen until its TTL elapses,
// independent of the monthly record lifecycle. It also provides the
// month-keyed run lease via Acquire/Release.
package seen

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// DefaultTTL is the retention window after which a previously observed
// fingerprint becomes eligible again. Shared constant; never re-derived at
// call sites.
const DefaultTTL = 90 * 24 * time.Hour

// Store answers "have I recorded this before" with automatic expiry.
// Writes are monotonic and commutative, so overlapping runs may share a
// Store safely; Acquire is the one atomic primitive (add-if-absent) and
// backs the run lease.
type Store interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string, ttl time.Duration) error
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Key builds the namespaced store key for a fingerprint:
// seen:<scope>:<sha256 of material>. Scope keeps the same article surfaced
// under two entities tracked independently.
func Key(scope, material string) string {
	sum := sha256.Sum256([]byte(material))
	return "seen:" + scope + ":" + hex.EncodeToString(sum[:])
}
