// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"errors"
	"net/http"

	"github.com/vaultrag/vaultrag/pkg/core/services"
	"github.com/vaultrag/vaultrag/pkg/registry"
)

type ingestRequest struct {
	Filename string `json:"filename"`
	FileType string `json:"file_type,omitempty"`
	Content  string `json:"content"`
}

// handleIngestDocument handles POST /v1/documents
func (h *Handler) handleIngestDocument(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}
	if req.Filename == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "filename is required")
		return
	}
	if req.Content == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "content is required")
		return
	}

	doc, err := h.ingestor.Ingest(r.Context(), []byte(req.Content), services.IngestMetadata{
		Filename: req.Filename,
		FileType: req.FileType,
	})
	if err != nil {
		if doc != nil {
			// Ingested locally but the registry write failed; the document
			// is queryable and metadata catches up on resync.
			h.logger.Warn("Document ingested with registry drift", "document", req.Filename, "error", err)
			h.writeJSON(w, http.StatusAccepted, doc)
			return
		}
		h.writeError(w, http.StatusInternalServerError, "ingest_error", err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, doc)
}

// handleListDocuments handles GET /v1/documents
func (h *Handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.registry.ListDocuments(r.Context())
	if err != nil {
		h.writeError(w, http.StatusBadGateway, "registry_error", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"object": "list",
		"data":   docs,
	})
}

// handleGetDocument handles GET /v1/documents/{key}
func (h *Handler) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	rec, err := h.registry.GetDocument(r.Context(), r.PathValue("key"))
	if errors.Is(err, registry.ErrDocumentNotFound) {
		h.writeError(w, http.StatusNotFound, "not_found", "Document not found")
		return
	}
	if err != nil {
		h.writeError(w, http.StatusBadGateway, "registry_error", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

// handleDeleteDocument handles DELETE /v1/documents/{key}
func (h *Handler) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	err := h.ingestor.Remove(r.Context(), key)
	if errors.Is(err, registry.ErrDocumentNotFound) {
		h.writeError(w, http.StatusNotFound, "not_found", "Document not found")
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "delete_error", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":      key,
		"deleted": true,
	})
}
