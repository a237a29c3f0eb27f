package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore stores images on the local filesystem. Files are served
// statically under baseURL/storage/.
type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore creates a store rooted at dir.
func NewLocalStore(dir, baseURL string) *LocalStore {
	return &LocalStore{
		root:    dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (s *LocalStore) Save(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	key := objectKey(filename)
	full := filepath.Join(s.root, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create storage directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	return key, nil
}

func (s *LocalStore) Delete(ctx context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *LocalStore) URL(path string) string {
	return s.baseURL + "/storage/" + path
}

// resolve maps a storage path onto the root directory, rejecting paths that
// escape it.
func (s *LocalStore) resolve(path string) (string, error) {
	full := filepath.Join(s.root, filepath.FromSlash(path))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("invalid storage path: %s", path)
	}
	return full, nil
}
