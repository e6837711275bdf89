// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

// Package blobstore defines the content-addressed blob storage contract.
// Blobs are immutable byte payloads addressed by the SHA-256 of their
// content, so the same payload always maps to the same ID.
package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/vaultrag/vaultrag/pkg/provider"
)

// ErrBlobNotFound is returned when a blob does not exist.
var ErrBlobNotFound = errors.New("blob not found")

// ErrStoreUnavailable is returned when the backing store cannot be reached.
// The core does not retry; that policy belongs to the caller.
var ErrStoreUnavailable = errors.New("blob store unavailable")

// Providers is the registry of blob store backend implementations.
// Import implementation packages with blank imports to register them:
//
//	import _ "github.com/vaultrag/vaultrag/pkg/blobstore/memory"
//	import _ "github.com/vaultrag/vaultrag/pkg/blobstore/filesystem"
//	import _ "github.com/vaultrag/vaultrag/pkg/blobstore/s3"
var Providers = provider.NewRegistry[Store]("blob_store")

// Store is the interface for content-addressed blob storage backends.
type Store interface {
	// Put stores data and returns its content ID. Storing the same bytes
	// twice returns the same ID and is not an error.
	Put(ctx context.Context, data []byte) (string, error)

	// Get returns the blob bytes, or ErrBlobNotFound.
	Get(ctx context.Context, id string) ([]byte, error)

	// Exists reports whether a blob is present.
	Exists(ctx context.Context, id string) (bool, error)

	// Close releases any resources held by the backend.
	Close(ctx context.Context) error
}

// ContentID derives the canonical blob ID for a payload.
func ContentID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
