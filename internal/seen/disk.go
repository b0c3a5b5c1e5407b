package seen

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DiskStore implements Store as one file per key under a directory.
// Survives restarts without external services; meant for single-host
// deployments and development.
type DiskStore struct {
	dir string
}

// NewDiskStore creates a disk-backed seen store rooted at dir.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

type diskEntry struct {
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Seen reports whether the key is marked and unexpired. Expired files are
// removed on read.
func (s *DiskStore) Seen(ctx context.Context, key string) (bool, error) {
	path := s.path(key)

	data, err := os.ReadFile(path)
	if err != nil {
		return false, nil
	}

	var entry diskEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		_ = os.Remove(path)
		return false, nil
	}

	if time.Now().After(entry.ExpiresAt) {
		_ = os.Remove(path)
		return false, nil
	}
	return true, nil
}

// Mark records the key with the given TTL.
func (s *DiskStore) Mark(ctx context.Context, key string, ttl time.Duration) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create seen dir: %w", err)
	}

	data, err := json.Marshal(diskEntry{Key: key, ExpiresAt: time.Now().Add(ttl)})
	if err != nil {
		return fmt.Errorf("marshal seen entry: %w", err)
	}
	if err := os.WriteFile(s.path(key), data, 0644); err != nil {
		return fmt.Errorf("write seen entry: %w", err)
	}
	return nil
}

// Acquire records the key only if absent, using O_EXCL for atomicity
// within one host.
func (s *DiskStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if held, _ := s.Seen(ctx, key); held {
		return false, nil
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return false, fmt.Errorf("create seen dir: %w", err)
	}

	f, err := os.OpenFile(s.path(key), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("create seen entry: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := json.Marshal(diskEntry{Key: key, ExpiresAt: time.Now().Add(ttl)})
	if err != nil {
		return false, fmt.Errorf("marshal seen entry: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		return false, fmt.Errorf("write seen entry: %w", err)
	}
	return true, nil
}

// Release removes the key.
func (s *DiskStore) Release(ctx context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// path hashes the key into a filename; keys contain characters that are
// not filesystem-safe.
func (s *DiskStore) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+".seen")
}
