// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry defines the authoritative document registry contract.
// The registry is the source of truth for which documents exist and where
// their blobs live; every write bumps a monotonic global version counter
// that the sync engine diffs against the local cache version.
package registry

import (
	"context"
	"errors"
	"time"

	"github.com/vaultrag/vaultrag/pkg/provider"
)

// ErrDocumentNotFound is returned when a document key has no record.
var ErrDocumentNotFound = errors.New("document not found")

// ErrUnavailable is returned when the registry cannot be reached. Callers
// keep serving the existing cache (stale-but-available).
var ErrUnavailable = errors.New("registry unavailable")

// Providers is the registry of document registry backend implementations.
// Import implementation packages with blank imports to register them:
//
//	import _ "github.com/vaultrag/vaultrag/pkg/registry/memory"
//	import _ "github.com/vaultrag/vaultrag/pkg/registry/postgres"
//	import _ "github.com/vaultrag/vaultrag/pkg/registry/gateway"
var Providers = provider.NewRegistry[Registry]("registry")

// Record is the authoritative metadata for one document. Records are
// superseded, never mutated: re-adding a key writes a new record at a
// higher version.
type Record struct {
	DocumentKey    string    `json:"document_key"`
	VectorBlobID   string    `json:"vector_blob_id"`
	DocumentBlobID string    `json:"document_blob_id"`
	ChunkCount     int       `json:"chunk_count"`
	Version        int64     `json:"version"`
	Owner          string    `json:"owner"`
	CreatedAt      time.Time `json:"created_at"`
}

// Stats is the registry-wide summary. Version is the global monotonic
// counter the sync engine compares against.
type Stats struct {
	TotalDocuments int    `json:"total_documents"`
	Version        int64  `json:"version"`
	Owner          string `json:"owner"`
}

// Registry is the narrow read/write interface to the versioned document
// registry. Write operations return the new global version so a successful
// local write can advance the local cache version without a resync.
type Registry interface {
	// Stats returns the registry-wide summary.
	Stats(ctx context.Context) (Stats, error)

	// GetDocument returns the record for a key, or ErrDocumentNotFound.
	GetDocument(ctx context.Context, key string) (*Record, error)

	// ListDocuments returns all current records.
	ListDocuments(ctx context.Context) ([]*Record, error)

	// AddDocument writes a record, superseding any existing record for the
	// same key, and bumps the global version.
	AddDocument(ctx context.Context, rec *Record) (int64, error)

	// RemoveDocument deletes a record and bumps the global version.
	// Returns ErrDocumentNotFound if the key has no record.
	RemoveDocument(ctx context.Context, key string) (int64, error)

	// Close releases any resources held by the backend.
	Close(ctx context.Context) error
}
