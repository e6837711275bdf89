// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "time"

// ChatThread is a conversation owned by one identity.
type ChatThread struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatMessage is one turn in a thread. Assistant messages carry the sources
// the answer was grounded on.
type ChatMessage struct {
	ID        string      `json:"id"`
	ThreadID  string      `json:"thread_id"`
	Role      string      `json:"role"` // "user" or "assistant"
	Content   string      `json:"content"`
	Sources   []RAGSource `json:"sources,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
