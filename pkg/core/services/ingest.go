// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

// Package services holds the application services composed on top of the
// core: the ingestion pipeline that onboards documents, and the chat
// service that records question/answer turns.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/vaultrag/vaultrag/pkg/blobstore"
	"github.com/vaultrag/vaultrag/pkg/core/api"
	"github.com/vaultrag/vaultrag/pkg/core/schema"
	"github.com/vaultrag/vaultrag/pkg/extract"
	"github.com/vaultrag/vaultrag/pkg/observability/logging"
	"github.com/vaultrag/vaultrag/pkg/registry"
	"github.com/vaultrag/vaultrag/pkg/vectorindex"
)

// Resyncer receives a nudge after registry writes so the background sync
// loop reconciles promptly instead of waiting for its next tick.
type Resyncer interface {
	Notify()
}

// IngestMetadata describes the payload being ingested.
type IngestMetadata struct {
	Filename string
	FileType string
}

// Ingestor onboards documents end-to-end: extract, store, chunk, embed,
// index, snapshot, register.
type Ingestor struct {
	blobs        blobstore.Store
	embedder     api.EmbeddingClient
	reg          registry.Registry
	handle       *vectorindex.Handle
	snapshotPath string
	chunkSize    int
	chunkOverlap int
	resyncer     Resyncer // nil-safe: nil means no nudge
	logger       *logging.Logger
}

// NewIngestor creates an ingestion pipeline. Chunk parameters fall back to
// the chunker defaults when out of range.
func NewIngestor(blobs blobstore.Store, embedder api.EmbeddingClient, reg registry.Registry, handle *vectorindex.Handle, snapshotPath string, chunkSize, chunkOverlap int, resyncer Resyncer, logger *logging.Logger) *Ingestor {
	return &Ingestor{
		blobs:        blobs,
		embedder:     embedder,
		reg:          reg,
		handle:       handle,
		snapshotPath: snapshotPath,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		resyncer:     resyncer,
		logger:       logger,
	}
}

// Ingest onboards one document. The blob store write is the atomicity
// boundary: failure there aborts the whole operation. A failed registry
// write after the local index was updated is returned as an error, but the
// blob and index additions stay in place; the sync loop reconciles the
// metadata drift on the next successful resync.
func (s *Ingestor) Ingest(ctx context.Context, content []byte, meta IngestMetadata) (*schema.StoredDocument, error) {
	text, err := extract.Text(content, meta.Filename)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", meta.Filename, err)
	}

	documentBlobID, err := s.blobs.Put(ctx, []byte(text))
	if err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}

	chunks := vectorindex.ChunkText(text, s.chunkSize, s.chunkOverlap)
	embeddings, err := s.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed %d chunks: %w", len(chunks), err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: %d chunks, %d embeddings", len(chunks), len(embeddings))
	}

	entries := make([]vectorindex.Entry, len(chunks))
	for i, chunk := range chunks {
		entries[i] = vectorindex.Entry{
			Text:      chunk,
			Embedding: embeddings[i],
			Metadata: vectorindex.Metadata{
				BlobID:      documentBlobID,
				Filename:    meta.Filename,
				ChunkIndex:  i,
				TotalChunks: len(chunks),
			},
		}
	}

	vectorData, err := vectorindex.EncodeEntries(entries)
	if err != nil {
		return nil, err
	}
	vectorBlobID, err := s.blobs.Put(ctx, vectorData)
	if err != nil {
		return nil, fmt.Errorf("store vectors: %w", err)
	}

	// Mutate and persist under the handle's writer lock so a concurrent
	// resync cannot swap the index or the snapshot out from under us.
	var ix *vectorindex.Index
	err = s.handle.Commit(func(current *vectorindex.Index) (*vectorindex.Index, error) {
		if err := current.Add(entries...); err != nil {
			return nil, fmt.Errorf("index document: %w", err)
		}
		if err := vectorindex.SaveSnapshot(s.snapshotPath, current.Snapshot()); err != nil {
			return nil, fmt.Errorf("persist snapshot: %w", err)
		}
		ix = current
		return current, nil
	})
	if err != nil {
		return nil, err
	}

	doc := &schema.StoredDocument{
		ID:         documentBlobID,
		Filename:   meta.Filename,
		Content:    text,
		UploadedAt: time.Now().UTC(),
		FileType:   meta.FileType,
		Size:       int64(len(content)),
		ChunkCount: len(chunks),
	}

	version, err := s.reg.AddDocument(ctx, &registry.Record{
		DocumentKey:    meta.Filename,
		VectorBlobID:   vectorBlobID,
		DocumentBlobID: documentBlobID,
		ChunkCount:     len(chunks),
	})
	if err != nil {
		// Deliberate availability/consistency tradeoff: local state is
		// already serving the document, metadata catches up on resync.
		s.logger.Warn("Registry write failed after local ingest",
			"document", meta.Filename,
			"error", err)
		return doc, fmt.Errorf("register document %s: %w", meta.Filename, err)
	}

	// Fast-forward the local version only when this write was the sole
	// missing update, and only if the handle still holds the index we
	// mutated. A larger jump means someone else wrote too, and a swapped
	// index means a resync landed while we waited on the registry; either
	// way the sync loop must reconcile, and we leave its snapshot alone.
	fastForwarded := false
	err = s.handle.Commit(func(current *vectorindex.Index) (*vectorindex.Index, error) {
		if current != ix || version != current.Version()+1 {
			return current, nil
		}
		current.SetVersion(version)
		if err := vectorindex.SaveSnapshot(s.snapshotPath, current.Snapshot()); err != nil {
			return nil, fmt.Errorf("persist snapshot: %w", err)
		}
		fastForwarded = true
		return current, nil
	})
	if err != nil {
		return nil, err
	}
	if !fastForwarded && s.resyncer != nil {
		s.resyncer.Notify()
	}

	s.logger.Info("Ingested document",
		"document", meta.Filename,
		"chunks", len(chunks),
		"version", version)
	return doc, nil
}

// Remove deletes a document from the registry and nudges the sync loop to
// rebuild the local index without it.
func (s *Ingestor) Remove(ctx context.Context, documentKey string) error {
	version, err := s.reg.RemoveDocument(ctx, documentKey)
	if err != nil {
		return fmt.Errorf("remove document %s: %w", documentKey, err)
	}
	s.logger.Info("Removed document", "document", documentKey, "version", version)
	if s.resyncer != nil {
		s.resyncer.Notify()
	}
	return nil
}
