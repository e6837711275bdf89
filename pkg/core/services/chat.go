// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/vaultrag/vaultrag/pkg/chatstore"
	"github.com/vaultrag/vaultrag/pkg/core/engine"
	"github.com/vaultrag/vaultrag/pkg/core/schema"
)

// ChatService records retrieval-augmented question/answer turns in threads.
type ChatService struct {
	store  chatstore.Store
	engine *engine.Engine
}

// NewChatService creates a chat service.
func NewChatService(store chatstore.Store, eng *engine.Engine) *ChatService {
	return &ChatService{store: store, engine: eng}
}

// CreateThread starts a new conversation for an owner.
func (s *ChatService) CreateThread(ctx context.Context, owner, title string) (*schema.ChatThread, error) {
	now := time.Now().UTC()
	thread := &schema.ChatThread{
		ID:        newID("thread"),
		Owner:     owner,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateThread(ctx, thread); err != nil {
		return nil, fmt.Errorf("create thread: %w", err)
	}
	return thread, nil
}

// GetThread returns a thread by ID.
func (s *ChatService) GetThread(ctx context.Context, id string) (*schema.ChatThread, error) {
	return s.store.GetThread(ctx, id)
}

// ListThreads returns an owner's threads, most recently updated first.
func (s *ChatService) ListThreads(ctx context.Context, owner string) ([]*schema.ChatThread, error) {
	return s.store.ListThreads(ctx, owner)
}

// DeleteThread removes a thread and its messages.
func (s *ChatService) DeleteThread(ctx context.Context, id string) error {
	return s.store.DeleteThread(ctx, id)
}

// ListMessages returns a thread's messages in order.
func (s *ChatService) ListMessages(ctx context.Context, threadID string) ([]*schema.ChatMessage, error) {
	return s.store.ListMessages(ctx, threadID)
}

// Ask runs the query engine for a question and records both sides of the
// turn: the user's question and the assistant's answer with its sources.
// The assistant message is returned.
func (s *ChatService) Ask(ctx context.Context, threadID, question string, opts engine.QueryOptions) (*schema.ChatMessage, error) {
	// Reject unknown threads before spending an embedding call.
	if _, err := s.store.GetThread(ctx, threadID); err != nil {
		return nil, err
	}

	result, err := s.engine.Query(ctx, question, opts)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	userMsg := &schema.ChatMessage{
		ID:        newID("msg"),
		ThreadID:  threadID,
		Role:      "user",
		Content:   question,
		CreatedAt: now,
	}
	if err := s.store.AppendMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("record question: %w", err)
	}

	assistantMsg := &schema.ChatMessage{
		ID:        newID("msg"),
		ThreadID:  threadID,
		Role:      "assistant",
		Content:   result.Answer,
		Sources:   result.Sources,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.AppendMessage(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("record answer: %w", err)
	}
	return assistantMsg, nil
}

// newID generates a prefixed random identifier.
func newID(prefix string) string {
	b := make([]byte, 12)
	rand.Read(b)
	return prefix + "_" + hex.EncodeToString(b)
}
