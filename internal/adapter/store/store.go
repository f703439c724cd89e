// Package store writes run artifacts to a local directory or an S3 bucket.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrInvalidKey is returned for keys that are absolute, empty or climb out
// of the store root.
var ErrInvalidKey = errors.New("invalid artifact key")

func checkKey(key string) error {
	if !filepath.IsLocal(filepath.FromSlash(key)) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// LocalStore writes artifacts below a root directory.
type LocalStore struct {
	root string
}

// NewLocalStore creates a store rooted at dir. The directory is created on
// first write.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{root: dir}
}

// Put writes data to root/key, creating parent directories, and returns the
// file path.
func (s *LocalStore) Put(_ context.Context, key string, data []byte) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	p := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact %s: %w", key, err)
	}
	return p, nil
}
