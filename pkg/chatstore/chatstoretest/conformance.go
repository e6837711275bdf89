// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

// Package chatstoretest provides a shared conformance test suite for
// chatstore.Store implementations. Each backend should call
// RunConformanceTests from its own _test.go file.
package chatstoretest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vaultrag/vaultrag/pkg/chatstore"
	"github.com/vaultrag/vaultrag/pkg/core/schema"
)

func newThread(id, owner string) *schema.ChatThread {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &schema.ChatThread{
		ID:        id,
		Owner:     owner,
		Title:     "thread " + id,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// RunConformanceTests exercises a Store implementation against the shared
// contract. The newStore function is called once per sub-test to provide an
// isolated store instance.
func RunConformanceTests(t *testing.T, newStore func(t *testing.T) chatstore.Store) {
	t.Helper()

	t.Run("CreateAndGetThread", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		thread := newThread("t1", "alice")
		if err := store.CreateThread(ctx, thread); err != nil {
			t.Fatalf("CreateThread: %v", err)
		}
		got, err := store.GetThread(ctx, "t1")
		if err != nil {
			t.Fatalf("GetThread: %v", err)
		}
		if got.ID != thread.ID || got.Owner != thread.Owner || got.Title != thread.Title {
			t.Errorf("got thread %+v, want %+v", got, thread)
		}
	})

	t.Run("GetMissingThread", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())

		_, err := store.GetThread(context.Background(), "nope")
		if !errors.Is(err, chatstore.ErrThreadNotFound) {
			t.Errorf("err = %v, want ErrThreadNotFound", err)
		}
	})

	t.Run("ListThreadsByOwner", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		for i, owner := range []string{"alice", "bob", "alice"} {
			thread := newThread(fmt.Sprintf("t%d", i), owner)
			// Later threads get later timestamps so ordering is testable.
			thread.UpdatedAt = thread.UpdatedAt.Add(time.Duration(i) * time.Second)
			if err := store.CreateThread(ctx, thread); err != nil {
				t.Fatalf("CreateThread: %v", err)
			}
		}

		threads, err := store.ListThreads(ctx, "alice")
		if err != nil {
			t.Fatalf("ListThreads: %v", err)
		}
		if len(threads) != 2 {
			t.Fatalf("len = %d, want 2", len(threads))
		}
		if threads[0].ID != "t2" || threads[1].ID != "t0" {
			t.Errorf("order = [%s, %s], want most recently updated first [t2, t0]",
				threads[0].ID, threads[1].ID)
		}
	})

	t.Run("AppendAndListMessages", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		if err := store.CreateThread(ctx, newThread("t1", "alice")); err != nil {
			t.Fatalf("CreateThread: %v", err)
		}

		msgs := []*schema.ChatMessage{
			{ID: "m1", ThreadID: "t1", Role: "user", Content: "question", CreatedAt: time.Now().UTC()},
			{ID: "m2", ThreadID: "t1", Role: "assistant", Content: "answer", CreatedAt: time.Now().UTC(),
				Sources: []schema.RAGSource{{BlobID: "b1", Filename: "doc.txt", Content: "ctx", Score: 0.9}}},
		}
		for _, msg := range msgs {
			if err := store.AppendMessage(ctx, msg); err != nil {
				t.Fatalf("AppendMessage(%s): %v", msg.ID, err)
			}
		}

		got, err := store.ListMessages(ctx, "t1")
		if err != nil {
			t.Fatalf("ListMessages: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("len = %d, want 2", len(got))
		}
		if got[0].ID != "m1" || got[1].ID != "m2" {
			t.Errorf("order = [%s, %s], want insertion order [m1, m2]", got[0].ID, got[1].ID)
		}
		if len(got[1].Sources) != 1 || got[1].Sources[0].BlobID != "b1" {
			t.Errorf("assistant sources = %+v, want the stored source", got[1].Sources)
		}
	})

	t.Run("AppendToMissingThread", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())

		err := store.AppendMessage(context.Background(), &schema.ChatMessage{
			ID: "m1", ThreadID: "nope", Role: "user", Content: "q", CreatedAt: time.Now().UTC(),
		})
		if !errors.Is(err, chatstore.ErrThreadNotFound) {
			t.Errorf("err = %v, want ErrThreadNotFound", err)
		}
	})

	t.Run("AppendTouchesThread", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		thread := newThread("t1", "alice")
		thread.UpdatedAt = thread.UpdatedAt.Add(-time.Hour)
		if err := store.CreateThread(ctx, thread); err != nil {
			t.Fatalf("CreateThread: %v", err)
		}
		if err := store.AppendMessage(ctx, &schema.ChatMessage{
			ID: "m1", ThreadID: "t1", Role: "user", Content: "q", CreatedAt: time.Now().UTC(),
		}); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}

		got, err := store.GetThread(ctx, "t1")
		if err != nil {
			t.Fatalf("GetThread: %v", err)
		}
		if !got.UpdatedAt.After(thread.UpdatedAt) {
			t.Error("UpdatedAt not advanced by AppendMessage")
		}
	})

	t.Run("DeleteThread", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		if err := store.CreateThread(ctx, newThread("t1", "alice")); err != nil {
			t.Fatalf("CreateThread: %v", err)
		}
		if err := store.AppendMessage(ctx, &schema.ChatMessage{
			ID: "m1", ThreadID: "t1", Role: "user", Content: "q", CreatedAt: time.Now().UTC(),
		}); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}

		if err := store.DeleteThread(ctx, "t1"); err != nil {
			t.Fatalf("DeleteThread: %v", err)
		}
		if _, err := store.GetThread(ctx, "t1"); !errors.Is(err, chatstore.ErrThreadNotFound) {
			t.Errorf("GetThread after delete: err = %v, want ErrThreadNotFound", err)
		}
		if _, err := store.ListMessages(ctx, "t1"); !errors.Is(err, chatstore.ErrThreadNotFound) {
			t.Errorf("ListMessages after delete: err = %v, want ErrThreadNotFound", err)
		}

		if err := store.DeleteThread(ctx, "t1"); !errors.Is(err, chatstore.ErrThreadNotFound) {
			t.Errorf("second DeleteThread: err = %v, want ErrThreadNotFound", err)
		}
	})
}
