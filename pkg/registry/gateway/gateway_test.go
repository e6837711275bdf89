// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vaultrag/vaultrag/pkg/registry"
)

func TestClient_StatsAndAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/registry/stats" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(registry.Stats{TotalDocuments: 4, Version: 9, Owner: "0xabc"})
	}))
	defer srv.Close()

	c := New(srv.URL, "secret")
	stats, err := c.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalDocuments != 4 || stats.Version != 9 || stats.Owner != "0xabc" {
		t.Errorf("stats = %+v", stats)
	}
}

func TestClient_AddDocumentReturnsVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/registry/documents" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var rec registry.Record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if rec.DocumentKey != "doc-a" || rec.ChunkCount != 3 {
			t.Errorf("record = %+v", rec)
		}
		json.NewEncoder(w).Encode(map[string]int64{"version": 12})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	v, err := c.AddDocument(context.Background(), &registry.Record{
		DocumentKey: "doc-a", VectorBlobID: "vb", DocumentBlobID: "db", ChunkCount: 3,
	})
	if err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if v != 12 {
		t.Errorf("version = %d, want 12", v)
	}
}

func TestClient_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.GetDocument(context.Background(), "ghost")
	if !errors.Is(err, registry.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestClient_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.Stats(context.Background())
	if !errors.Is(err, registry.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestClient_UnreachableIsUnavailable(t *testing.T) {
	// Point at a closed server.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c := New(srv.URL, "")
	_, err := c.ListDocuments(context.Background())
	if !errors.Is(err, registry.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}
