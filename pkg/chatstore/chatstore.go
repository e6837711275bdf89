// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

// Package chatstore defines persistence for chat threads and their
// messages. Threads are lightweight containers; the retrieval-augmented
// answers appended to them carry the sources they were grounded on.
package chatstore

import (
	"context"
	"errors"

	"github.com/vaultrag/vaultrag/pkg/core/schema"
	"github.com/vaultrag/vaultrag/pkg/provider"
)

// ErrThreadNotFound is returned when a thread does not exist.
var ErrThreadNotFound = errors.New("thread not found")

// Providers is the registry of chat store backend implementations.
// Import implementation packages with blank imports to register them:
//
//	import _ "github.com/vaultrag/vaultrag/pkg/chatstore/memory"
//	import _ "github.com/vaultrag/vaultrag/pkg/chatstore/sqlite"
var Providers = provider.NewRegistry[Store]("chat_store")

// Store is the interface for chat persistence backends.
type Store interface {
	// CreateThread persists a new thread.
	CreateThread(ctx context.Context, thread *schema.ChatThread) error

	// GetThread returns a thread by ID, or ErrThreadNotFound.
	GetThread(ctx context.Context, id string) (*schema.ChatThread, error)

	// ListThreads returns all threads for an owner, most recently
	// updated first.
	ListThreads(ctx context.Context, owner string) ([]*schema.ChatThread, error)

	// DeleteThread removes a thread and its messages, or returns
	// ErrThreadNotFound.
	DeleteThread(ctx context.Context, id string) error

	// AppendMessage adds a message to its thread and touches the
	// thread's UpdatedAt. Returns ErrThreadNotFound for unknown threads.
	AppendMessage(ctx context.Context, msg *schema.ChatMessage) error

	// ListMessages returns a thread's messages in insertion order, or
	// ErrThreadNotFound.
	ListMessages(ctx context.Context, threadID string) ([]*schema.ChatMessage, error)

	// Close releases backend resources.
	Close(ctx context.Context) error
}
