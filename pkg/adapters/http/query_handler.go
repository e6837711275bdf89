// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"encoding/json"
	"net/http"

	"github.com/vaultrag/vaultrag/pkg/core/engine"
)

type queryRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// handleQuery handles POST /v1/query
func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}
	if req.Question == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "question is required")
		return
	}

	result, err := h.engine.Query(r.Context(), req.Question, engine.QueryOptions{TopK: req.TopK})
	if err != nil {
		h.writeError(w, http.StatusBadGateway, "query_error", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// handleSync handles POST /v1/sync
func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	synced, err := h.syncer.SyncIfStale(r.Context())
	if err != nil {
		h.writeError(w, http.StatusBadGateway, "sync_error", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"synced": synced,
		"state":  h.syncer.State().String(),
	})
}

// handleRegistryStats handles GET /v1/registry/stats
func (h *Handler) handleRegistryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.registry.Stats(r.Context())
	if err != nil {
		h.writeError(w, http.StatusBadGateway, "registry_error", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}
