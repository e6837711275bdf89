// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

// Package http is the HTTP adapter: a thin JSON layer over the ingestion
// pipeline, query engine, sync engine and chat service.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/vaultrag/vaultrag/pkg/core/engine"
	"github.com/vaultrag/vaultrag/pkg/core/services"
	"github.com/vaultrag/vaultrag/pkg/core/syncer"
	"github.com/vaultrag/vaultrag/pkg/observability/logging"
	"github.com/vaultrag/vaultrag/pkg/registry"
)

// Handler implements the HTTP adapter
type Handler struct {
	ingestor *services.Ingestor
	engine   *engine.Engine
	chat     *services.ChatService
	syncer   *syncer.Syncer
	registry registry.Registry
	logger   *logging.Logger
	mux      *http.ServeMux
}

// New creates a new HTTP handler
func New(ingestor *services.Ingestor, eng *engine.Engine, chat *services.ChatService, sync *syncer.Syncer, reg registry.Registry, logger *logging.Logger) *Handler {
	h := &Handler{
		ingestor: ingestor,
		engine:   eng,
		chat:     chat,
		syncer:   sync,
		registry: reg,
		logger:   logger,
		mux:      http.NewServeMux(),
	}

	// Register routes
	h.mux.HandleFunc("GET /health", h.handleHealth)

	// Documents API
	h.mux.HandleFunc("POST /v1/documents", h.handleIngestDocument)
	h.mux.HandleFunc("GET /v1/documents", h.handleListDocuments)
	h.mux.HandleFunc("GET /v1/documents/{key}", h.handleGetDocument)
	h.mux.HandleFunc("DELETE /v1/documents/{key}", h.handleDeleteDocument)

	// Query API
	h.mux.HandleFunc("POST /v1/query", h.handleQuery)

	// Sync API
	h.mux.HandleFunc("POST /v1/sync", h.handleSync)
	h.mux.HandleFunc("GET /v1/registry/stats", h.handleRegistryStats)

	// Threads API
	h.mux.HandleFunc("POST /v1/threads", h.handleCreateThread)
	h.mux.HandleFunc("GET /v1/threads", h.handleListThreads)
	h.mux.HandleFunc("GET /v1/threads/{id}", h.handleGetThread)
	h.mux.HandleFunc("DELETE /v1/threads/{id}", h.handleDeleteThread)
	h.mux.HandleFunc("GET /v1/threads/{id}/messages", h.handleListMessages)
	h.mux.HandleFunc("POST /v1/threads/{id}/messages", h.handleAsk)

	return h
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Request",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	h.mux.ServeHTTP(w, r)
}

// handleHealth handles health check requests
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"state":  h.syncer.State().String(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"type":    errType,
			"message": message,
		},
	})
}
