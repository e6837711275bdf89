// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the shared wire and result types exchanged between
// the core services and their callers.
package schema

import "time"

// StoredDocument is the summary returned after a successful ingestion.
// ID is the document's content-addressed blob ID.
type StoredDocument struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Content    string    `json:"content"`
	UploadedAt time.Time `json:"uploaded_at"`
	FileType   string    `json:"file_type,omitempty"`
	Size       int64     `json:"size"`
	ChunkCount int       `json:"chunk_count"`
}

// RAGSource is one retrieved document attached to an answer, ordered by
// descending retrieval score.
type RAGSource struct {
	BlobID   string  `json:"blob_id"`
	Filename string  `json:"filename"`
	Content  string  `json:"content"`
	Score    float64 `json:"score"`
}

// RAGMetadata carries per-query timing and count information.
type RAGMetadata struct {
	ProcessingTimeMs   int64 `json:"processing_time_ms"`
	DocumentsRetrieved int   `json:"documents_retrieved"`
}

// RAGResult is the output of one retrieval-augmented query: the generated
// answer, the sources it was grounded on, and query metadata. Never
// persisted by the core itself.
type RAGResult struct {
	Answer   string      `json:"answer"`
	Sources  []RAGSource `json:"sources"`
	Metadata RAGMetadata `json:"metadata"`
}
