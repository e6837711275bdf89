// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vaultrag/vaultrag/pkg/chatstore"
	"github.com/vaultrag/vaultrag/pkg/core/schema"

	_ "modernc.org/sqlite"
)

func init() {
	chatstore.Providers.Register("sqlite", func(_ context.Context, params map[string]string) (chatstore.Store, error) {
		path := params["path"]
		if path == "" {
			return nil, fmt.Errorf("sqlite chat store requires path")
		}
		return New(path)
	})
}

// compile-time check
var _ chatstore.Store = (*Store)(nil)

// Store is a SQLite-backed chat store. Message sources are stored as a
// JSON column, since they are only ever read back whole.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) a SQLite chat store at path.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close(_ context.Context) error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS threads (
			id TEXT PRIMARY KEY,
			owner TEXT NOT NULL,
			title TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_threads_owner ON threads(owner)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			thread_id TEXT NOT NULL REFERENCES threads(id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			sources TEXT NOT NULL DEFAULT '[]',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("sqlite create tables: %w", err)
		}
	}
	return nil
}

// CreateThread persists a new thread.
func (s *Store) CreateThread(ctx context.Context, thread *schema.ChatThread) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO threads (id, owner, title, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		thread.ID, thread.Owner, thread.Title, thread.CreatedAt, thread.UpdatedAt)
	if err != nil {
		return fmt.Errorf("sqlite create thread: %w", err)
	}
	return nil
}

// GetThread returns a thread by ID.
func (s *Store) GetThread(ctx context.Context, id string) (*schema.ChatThread, error) {
	var thread schema.ChatThread
	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner, title, created_at, updated_at FROM threads WHERE id = ?`,
		id).Scan(&thread.ID, &thread.Owner, &thread.Title, &thread.CreatedAt, &thread.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, chatstore.ErrThreadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite get thread: %w", err)
	}
	return &thread, nil
}

// ListThreads returns an owner's threads, most recently updated first.
func (s *Store) ListThreads(ctx context.Context, owner string) ([]*schema.ChatThread, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner, title, created_at, updated_at FROM threads
		 WHERE owner = ? ORDER BY updated_at DESC`,
		owner)
	if err != nil {
		return nil, fmt.Errorf("sqlite list threads: %w", err)
	}
	defer rows.Close()

	var out []*schema.ChatThread
	for rows.Next() {
		var thread schema.ChatThread
		if err := rows.Scan(&thread.ID, &thread.Owner, &thread.Title, &thread.CreatedAt, &thread.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite scan thread: %w", err)
		}
		out = append(out, &thread)
	}
	return out, rows.Err()
}

// DeleteThread removes a thread and its messages.
func (s *Store) DeleteThread(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM threads WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite delete thread: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite delete thread: %w", err)
	}
	if n == 0 {
		return chatstore.ErrThreadNotFound
	}
	// Cascade is not enforced without foreign_keys pragma; delete explicitly.
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE thread_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite delete messages: %w", err)
	}
	return nil
}

// AppendMessage adds a message and touches the thread's UpdatedAt.
func (s *Store) AppendMessage(ctx context.Context, msg *schema.ChatMessage) error {
	sources, err := json.Marshal(msg.Sources)
	if err != nil {
		return fmt.Errorf("sqlite encode sources: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE threads SET updated_at = ? WHERE id = ?`,
		time.Now().UTC(), msg.ThreadID)
	if err != nil {
		return fmt.Errorf("sqlite touch thread: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("sqlite touch thread: %w", err)
	} else if n == 0 {
		return chatstore.ErrThreadNotFound
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, thread_id, role, content, sources, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ThreadID, msg.Role, msg.Content, string(sources), msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("sqlite append message: %w", err)
	}
	return tx.Commit()
}

// ListMessages returns a thread's messages in insertion order.
func (s *Store) ListMessages(ctx context.Context, threadID string) ([]*schema.ChatMessage, error) {
	if _, err := s.GetThread(ctx, threadID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, thread_id, role, content, sources, created_at FROM messages
		 WHERE thread_id = ? ORDER BY rowid`,
		threadID)
	if err != nil {
		return nil, fmt.Errorf("sqlite list messages: %w", err)
	}
	defer rows.Close()

	var out []*schema.ChatMessage
	for rows.Next() {
		var msg schema.ChatMessage
		var sources string
		if err := rows.Scan(&msg.ID, &msg.ThreadID, &msg.Role, &msg.Content, &sources, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite scan message: %w", err)
		}
		if err := json.Unmarshal([]byte(sources), &msg.Sources); err != nil {
			return nil, fmt.Errorf("sqlite decode sources: %w", err)
		}
		out = append(out, &msg)
	}
	return out, rows.Err()
}
