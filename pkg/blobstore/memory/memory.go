// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vaultrag/vaultrag/pkg/blobstore"
)

func init() {
	blobstore.Providers.Register("memory", func(_ context.Context, _ map[string]string) (blobstore.Store, error) {
		return New(), nil
	})
}

// compile-time check
var _ blobstore.Store = (*Store)(nil)

// Store is an in-memory blob store for tests and local development.
type Store struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// New creates an empty in-memory blob store.
func New() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

// Put stores data under its content ID.
func (s *Store) Put(_ context.Context, data []byte) (string, error) {
	id := blobstore.ContentID(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.blobs[id]; !exists {
		cp := make([]byte, len(data))
		copy(cp, data)
		s.blobs[id] = cp
	}
	return id, nil
}

// Get returns the blob bytes.
func (s *Store) Get(_ context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.blobs[id]
	if !exists {
		return nil, fmt.Errorf("blob %s: %w", id, blobstore.ErrBlobNotFound)
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Exists reports whether a blob is present.
func (s *Store) Exists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.blobs[id]
	return exists, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close(_ context.Context) error {
	return nil
}

// Len returns the number of stored blobs. Used by tests.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
