// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vaultrag/vaultrag/pkg/chatstore"
	"github.com/vaultrag/vaultrag/pkg/core/schema"
)

func init() {
	chatstore.Providers.Register("memory", func(_ context.Context, _ map[string]string) (chatstore.Store, error) {
		return New(), nil
	})
}

// compile-time check
var _ chatstore.Store = (*Store)(nil)

// Store is an in-memory chat store for tests and local development.
type Store struct {
	mu       sync.RWMutex
	threads  map[string]*schema.ChatThread
	messages map[string][]*schema.ChatMessage
}

// New creates an empty in-memory chat store.
func New() *Store {
	return &Store{
		threads:  make(map[string]*schema.ChatThread),
		messages: make(map[string][]*schema.ChatMessage),
	}
}

// CreateThread persists a new thread.
func (s *Store) CreateThread(_ context.Context, thread *schema.ChatThread) error {
	if thread.ID == "" {
		return fmt.Errorf("thread id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[thread.ID]; ok {
		return fmt.Errorf("thread %s already exists", thread.ID)
	}
	cp := *thread
	s.threads[thread.ID] = &cp
	return nil
}

// GetThread returns a thread by ID.
func (s *Store) GetThread(_ context.Context, id string) (*schema.ChatThread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	thread, ok := s.threads[id]
	if !ok {
		return nil, chatstore.ErrThreadNotFound
	}
	cp := *thread
	return &cp, nil
}

// ListThreads returns an owner's threads, most recently updated first.
func (s *Store) ListThreads(_ context.Context, owner string) ([]*schema.ChatThread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*schema.ChatThread, 0)
	for _, thread := range s.threads {
		if thread.Owner == owner {
			cp := *thread
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// DeleteThread removes a thread and its messages.
func (s *Store) DeleteThread(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[id]; !ok {
		return chatstore.ErrThreadNotFound
	}
	delete(s.threads, id)
	delete(s.messages, id)
	return nil
}

// AppendMessage adds a message and touches the thread's UpdatedAt.
func (s *Store) AppendMessage(_ context.Context, msg *schema.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	thread, ok := s.threads[msg.ThreadID]
	if !ok {
		return chatstore.ErrThreadNotFound
	}
	cp := *msg
	cp.Sources = append([]schema.RAGSource(nil), msg.Sources...)
	s.messages[msg.ThreadID] = append(s.messages[msg.ThreadID], &cp)
	thread.UpdatedAt = time.Now().UTC()
	return nil
}

// ListMessages returns a thread's messages in insertion order.
func (s *Store) ListMessages(_ context.Context, threadID string) ([]*schema.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.threads[threadID]; !ok {
		return nil, chatstore.ErrThreadNotFound
	}
	msgs := s.messages[threadID]
	out := make([]*schema.ChatMessage, len(msgs))
	for i, m := range msgs {
		cp := *m
		out[i] = &cp
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close(_ context.Context) error {
	return nil
}
