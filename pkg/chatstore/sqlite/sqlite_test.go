// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/vaultrag/vaultrag/pkg/chatstore"
	"github.com/vaultrag/vaultrag/pkg/chatstore/chatstoretest"
	"github.com/vaultrag/vaultrag/pkg/core/schema"
)

func chatThread(id, owner string) *schema.ChatThread {
	now := time.Now().UTC()
	return &schema.ChatThread{ID: id, Owner: owner, Title: "t", CreatedAt: now, UpdatedAt: now}
}

func TestConformance(t *testing.T) {
	chatstoretest.RunConformanceTests(t, func(t *testing.T) chatstore.Store {
		store, err := New(filepath.Join(t.TempDir(), "chat.db"))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		return store
	})
}

func TestProviderRequiresPath(t *testing.T) {
	if _, err := chatstore.Providers.New(context.Background(), "sqlite", nil); err == nil {
		t.Error("expected an error when path is missing")
	}
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.db")
	ctx := context.Background()

	store, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.CreateThread(ctx, chatThread("t1", "alice")); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(ctx); err != nil {
		t.Fatal(err)
	}

	reopened, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close(ctx)

	got, err := reopened.GetThread(ctx, "t1")
	if err != nil {
		t.Fatalf("GetThread after reopen: %v", err)
	}
	if got.Owner != "alice" {
		t.Errorf("owner = %q, want alice", got.Owner)
	}
}
