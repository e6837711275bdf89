// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"errors"
	"net/http"

	"github.com/vaultrag/vaultrag/pkg/chatstore"
	"github.com/vaultrag/vaultrag/pkg/core/engine"
)

type createThreadRequest struct {
	Owner string `json:"owner"`
	Title string `json:"title,omitempty"`
}

type askRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
}

// handleCreateThread handles POST /v1/threads
func (h *Handler) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	var req createThreadRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}
	if req.Owner == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "owner is required")
		return
	}

	thread, err := h.chat.CreateThread(r.Context(), req.Owner, req.Title)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "creation_error", err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, thread)
}

// handleListThreads handles GET /v1/threads?owner=
func (h *Handler) handleListThreads(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "owner query parameter is required")
		return
	}

	threads, err := h.chat.ListThreads(r.Context(), owner)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "list_error", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"object": "list",
		"data":   threads,
	})
}

// handleGetThread handles GET /v1/threads/{id}
func (h *Handler) handleGetThread(w http.ResponseWriter, r *http.Request) {
	thread, err := h.chat.GetThread(r.Context(), r.PathValue("id"))
	if errors.Is(err, chatstore.ErrThreadNotFound) {
		h.writeError(w, http.StatusNotFound, "not_found", "Thread not found")
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "get_error", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, thread)
}

// handleDeleteThread handles DELETE /v1/threads/{id}
func (h *Handler) handleDeleteThread(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := h.chat.DeleteThread(r.Context(), id)
	if errors.Is(err, chatstore.ErrThreadNotFound) {
		h.writeError(w, http.StatusNotFound, "not_found", "Thread not found")
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "delete_error", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":      id,
		"deleted": true,
	})
}

// handleListMessages handles GET /v1/threads/{id}/messages
func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.chat.ListMessages(r.Context(), r.PathValue("id"))
	if errors.Is(err, chatstore.ErrThreadNotFound) {
		h.writeError(w, http.StatusNotFound, "not_found", "Thread not found")
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "list_error", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"object": "list",
		"data":   msgs,
	})
}

// handleAsk handles POST /v1/threads/{id}/messages
func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}
	if req.Question == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "question is required")
		return
	}

	msg, err := h.chat.Ask(r.Context(), r.PathValue("id"), req.Question, engine.QueryOptions{TopK: req.TopK})
	if errors.Is(err, chatstore.ErrThreadNotFound) {
		h.writeError(w, http.StatusNotFound, "not_found", "Thread not found")
		return
	}
	if err != nil {
		h.writeError(w, http.StatusBadGateway, "ask_error", err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, msg)
}
