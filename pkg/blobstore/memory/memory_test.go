// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"testing"

	"github.com/vaultrag/vaultrag/pkg/blobstore"
	"github.com/vaultrag/vaultrag/pkg/blobstore/blobstoretest"
)

func TestConformance(t *testing.T) {
	blobstoretest.RunConformanceTests(t, func(t *testing.T) blobstore.Store {
		return New()
	})
}

func TestGetReturnsCopy(t *testing.T) {
	store := New()
	ctx := context.Background()

	id, err := store.Put(ctx, []byte("original"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got[0] = 'X'

	again, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get again: %v", err)
	}
	if string(again) != "original" {
		t.Errorf("stored blob was mutated through a returned slice: %q", again)
	}
}
