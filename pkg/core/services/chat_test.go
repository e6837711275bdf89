// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

package services

import (
	"context"
	"errors"
	"testing"

	blobmem "github.com/vaultrag/vaultrag/pkg/blobstore/memory"
	"github.com/vaultrag/vaultrag/pkg/chatstore"
	chatmem "github.com/vaultrag/vaultrag/pkg/chatstore/memory"
	"github.com/vaultrag/vaultrag/pkg/core/api"
	"github.com/vaultrag/vaultrag/pkg/core/engine"
	"github.com/vaultrag/vaultrag/pkg/observability/logging"
	"github.com/vaultrag/vaultrag/pkg/vectorindex"
)

func newChatService(t *testing.T) (*ChatService, *api.MockGenerationClient) {
	t.Helper()
	ctx := context.Background()
	blobs := blobmem.New()

	blobID, err := blobs.Put(ctx, []byte("the sky is blue"))
	if err != nil {
		t.Fatal(err)
	}
	embedder := api.NewMockEmbeddingClient(8)
	vecs, err := embedder.Embed(ctx, []string{"the sky is blue"})
	if err != nil {
		t.Fatal(err)
	}

	ix := vectorindex.New(embedder.Model())
	err = ix.Add(vectorindex.Entry{
		Text:      "the sky is blue",
		Embedding: vecs[0],
		Metadata:  vectorindex.Metadata{BlobID: blobID, Filename: "sky.txt", TotalChunks: 1},
	})
	if err != nil {
		t.Fatal(err)
	}

	gen := &api.MockGenerationClient{Answer: "The sky is blue. [Document 1]"}
	eng := engine.New(vectorindex.NewHandle(ix), blobs, embedder, gen, logging.Discard())
	return NewChatService(chatmem.New(), eng), gen
}

func TestChatService_ThreadLifecycle(t *testing.T) {
	svc, _ := newChatService(t)
	ctx := context.Background()

	thread, err := svc.CreateThread(ctx, "alice", "weather questions")
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}
	if thread.ID == "" || thread.Owner != "alice" {
		t.Errorf("thread = %+v, want generated ID and owner alice", thread)
	}

	threads, err := svc.ListThreads(ctx, "alice")
	if err != nil {
		t.Fatalf("ListThreads: %v", err)
	}
	if len(threads) != 1 || threads[0].ID != thread.ID {
		t.Errorf("threads = %+v, want the created thread", threads)
	}

	if err := svc.DeleteThread(ctx, thread.ID); err != nil {
		t.Fatalf("DeleteThread: %v", err)
	}
	if _, err := svc.GetThread(ctx, thread.ID); !errors.Is(err, chatstore.ErrThreadNotFound) {
		t.Errorf("err = %v, want ErrThreadNotFound", err)
	}
}

func TestChatService_AskRecordsBothTurns(t *testing.T) {
	svc, _ := newChatService(t)
	ctx := context.Background()

	thread, err := svc.CreateThread(ctx, "alice", "weather")
	if err != nil {
		t.Fatal(err)
	}

	answer, err := svc.Ask(ctx, thread.ID, "what color is the sky?", engine.QueryOptions{TopK: 1})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer.Role != "assistant" {
		t.Errorf("role = %q, want assistant", answer.Role)
	}
	if answer.Content != "The sky is blue. [Document 1]" {
		t.Errorf("content = %q, want the generated answer", answer.Content)
	}
	if len(answer.Sources) != 1 || answer.Sources[0].Filename != "sky.txt" {
		t.Errorf("sources = %+v, want the sky.txt source", answer.Sources)
	}

	msgs, err := svc.ListMessages(ctx, thread.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[0].Content != "what color is the sky?" {
		t.Errorf("first message = %+v, want the user question", msgs[0])
	}
	if msgs[1].Role != "assistant" {
		t.Errorf("second message role = %q, want assistant", msgs[1].Role)
	}
}

func TestChatService_AskUnknownThread(t *testing.T) {
	svc, gen := newChatService(t)

	_, err := svc.Ask(context.Background(), "nope", "question", engine.QueryOptions{})
	if !errors.Is(err, chatstore.ErrThreadNotFound) {
		t.Fatalf("err = %v, want ErrThreadNotFound", err)
	}
	if gen.LastQuestion != "" {
		t.Error("query engine ran for an unknown thread")
	}
}
