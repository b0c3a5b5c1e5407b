package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FSStore implements ObjectStore on a local directory. Used for
// development and tests; the production backend is S3Store.
type FSStore struct {
	dir string
}

// NewFSStore creates a filesystem-backed object store rooted at dir.
func NewFSStore(dir string) *FSStore {
	return &FSStore{dir: dir}
}

// Get reads an object's bytes.
func (s *FSStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Put writes an object.
func (s *FSStore) Put(ctx context.Context, key string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	if err := os.WriteFile(s.path(key), data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Exists reports whether the key is present.
func (s *FSStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *FSStore) path(key string) string {
	return filepath.Join(s.dir, key)
}
