// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vaultrag/vaultrag/pkg/blobstore"
)

func init() {
	blobstore.Providers.Register("filesystem", func(_ context.Context, params map[string]string) (blobstore.Store, error) {
		return New(params["base_dir"])
	})
}

// compile-time check
var _ blobstore.Store = (*Store)(nil)

// Store implements blobstore.Store on a local filesystem.
//
// Layout (two-character fan-out keeps directories small):
//
//	<baseDir>/<id[:2]>/<id>
type Store struct {
	baseDir string
}

// New creates a filesystem-backed Store, creating baseDir if it does not exist.
func New(baseDir string) (*Store, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("filesystem blobstore: base_dir is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create base dir %s: %w", baseDir, err)
	}
	return &Store{baseDir: baseDir}, nil
}

func (s *Store) blobPath(id string) string {
	if len(id) < 2 {
		return filepath.Join(s.baseDir, id)
	}
	return filepath.Join(s.baseDir, id[:2], id)
}

// Put writes the blob atomically (temp file + rename). Re-putting existing
// content is a no-op.
func (s *Store) Put(_ context.Context, data []byte) (string, error) {
	id := blobstore.ContentID(data)
	path := s.blobPath(id)

	if _, err := os.Stat(path); err == nil {
		return id, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create blob dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("rename blob: %w", err)
	}
	return id, nil
}

// Get returns the blob bytes.
func (s *Store) Get(_ context.Context, id string) ([]byte, error) {
	data, err := os.ReadFile(s.blobPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("blob %s: %w", id, blobstore.ErrBlobNotFound)
		}
		return nil, fmt.Errorf("read blob %s: %w", id, err)
	}
	return data, nil
}

// Exists reports whether a blob is present on disk.
func (s *Store) Exists(_ context.Context, id string) (bool, error) {
	_, err := os.Stat(s.blobPath(id))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat blob %s: %w", id, err)
}

// Close is a no-op for the filesystem store.
func (s *Store) Close(_ context.Context) error {
	return nil
}
