// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

// Package blobstoretest provides a shared conformance test suite for
// blobstore.Store implementations. Each backend should call
// RunConformanceTests from its own _test.go file.
package blobstoretest

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/vaultrag/vaultrag/pkg/blobstore"
)

// RunConformanceTests exercises a Store implementation against the shared
// contract. The newStore function is called once per sub-test to provide an
// isolated store instance.
func RunConformanceTests(t *testing.T, newStore func(t *testing.T) blobstore.Store) {
	t.Helper()

	t.Run("PutAndGet", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		content := []byte("hello blob")
		id, err := store.Put(ctx, content)
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
		if id != blobstore.ContentID(content) {
			t.Errorf("Put returned %q, want content ID %q", id, blobstore.ContentID(content))
		}

		got, err := store.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !bytes.Equal(got, content) {
			t.Errorf("content mismatch: got %q, want %q", got, content)
		}
	})

	t.Run("PutIsIdempotent", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		content := []byte("same bytes twice")
		first, err := store.Put(ctx, content)
		if err != nil {
			t.Fatalf("first Put: %v", err)
		}
		second, err := store.Put(ctx, content)
		if err != nil {
			t.Fatalf("second Put: %v", err)
		}
		if first != second {
			t.Errorf("Put not idempotent: %q vs %q", first, second)
		}
	})

	t.Run("Exists", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		id, err := store.Put(ctx, []byte("present"))
		if err != nil {
			t.Fatalf("Put: %v", err)
		}

		ok, err := store.Exists(ctx, id)
		if err != nil {
			t.Fatalf("Exists: %v", err)
		}
		if !ok {
			t.Error("Exists returned false for a stored blob")
		}

		ok, err = store.Exists(ctx, blobstore.ContentID([]byte("absent")))
		if err != nil {
			t.Fatalf("Exists (missing): %v", err)
		}
		if ok {
			t.Error("Exists returned true for a missing blob")
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())

		_, err := store.Get(context.Background(), blobstore.ContentID([]byte("never stored")))
		if !errors.Is(err, blobstore.ErrBlobNotFound) {
			t.Errorf("expected ErrBlobNotFound, got %v", err)
		}
	})

	t.Run("DistinctContentDistinctIDs", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		a, err := store.Put(ctx, []byte("payload a"))
		if err != nil {
			t.Fatalf("Put a: %v", err)
		}
		b, err := store.Put(ctx, []byte("payload b"))
		if err != nil {
			t.Fatalf("Put b: %v", err)
		}
		if a == b {
			t.Error("distinct payloads produced the same blob ID")
		}
	})

	t.Run("EmptyPayload", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		id, err := store.Put(ctx, nil)
		if err != nil {
			t.Fatalf("Put empty: %v", err)
		}
		got, err := store.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get empty: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected empty payload, got %d bytes", len(got))
		}
	})
}
