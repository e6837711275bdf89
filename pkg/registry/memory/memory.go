// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vaultrag/vaultrag/pkg/registry"
)

func init() {
	registry.Providers.Register("memory", func(_ context.Context, params map[string]string) (registry.Registry, error) {
		return New(params["owner"]), nil
	})
}

// compile-time check
var _ registry.Registry = (*Registry)(nil)

// Registry is an in-memory versioned document registry for tests and
// single-node local deployments.
type Registry struct {
	mu      sync.RWMutex
	owner   string
	version int64
	records map[string]*registry.Record
}

// New creates an empty registry at version 0.
func New(owner string) *Registry {
	return &Registry{
		owner:   owner,
		records: make(map[string]*registry.Record),
	}
}

// Stats returns the registry-wide summary.
func (r *Registry) Stats(_ context.Context) (registry.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return registry.Stats{
		TotalDocuments: len(r.records),
		Version:        r.version,
		Owner:          r.owner,
	}, nil
}

// GetDocument returns a copy of the record for key.
func (r *Registry) GetDocument(_ context.Context, key string) (*registry.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, exists := r.records[key]
	if !exists {
		return nil, fmt.Errorf("document %s: %w", key, registry.ErrDocumentNotFound)
	}
	cp := *rec
	return &cp, nil
}

// ListDocuments returns all records, sorted by key for determinism.
func (r *Registry) ListDocuments(_ context.Context) ([]*registry.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*registry.Record, 0, len(r.records))
	for _, rec := range r.records {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DocumentKey < out[j].DocumentKey
	})
	return out, nil
}

// AddDocument writes a record, superseding any record with the same key,
// and bumps the global version.
func (r *Registry) AddDocument(_ context.Context, rec *registry.Record) (int64, error) {
	if rec.DocumentKey == "" {
		return 0, fmt.Errorf("document key is required")
	}
	if rec.ChunkCount <= 0 {
		return 0, fmt.Errorf("chunk count must be positive, got %d", rec.ChunkCount)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.version++
	cp := *rec
	cp.Version = r.version
	if cp.Owner == "" {
		cp.Owner = r.owner
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	r.records[rec.DocumentKey] = &cp
	return r.version, nil
}

// RemoveDocument deletes a record and bumps the global version.
func (r *Registry) RemoveDocument(_ context.Context, key string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[key]; !exists {
		return 0, fmt.Errorf("document %s: %w", key, registry.ErrDocumentNotFound)
	}
	delete(r.records, key)
	r.version++
	return r.version, nil
}

// Close is a no-op for the in-memory registry.
func (r *Registry) Close(_ context.Context) error {
	return nil
}

// SetVersion forces the global version counter. Used by tests to simulate
// external writers bumping the registry.
func (r *Registry) SetVersion(v int64) {
	r.mu.Lock()
	r.version = v
	r.mu.Unlock()
}
