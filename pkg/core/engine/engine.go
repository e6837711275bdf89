// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

// Package engine implements retrieval-augmented query answering: embed the
// question, search the local vector index, fetch the matched source
// documents from the blob store, and generate a grounded answer with
// citations.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vaultrag/vaultrag/pkg/blobstore"
	"github.com/vaultrag/vaultrag/pkg/core/api"
	"github.com/vaultrag/vaultrag/pkg/core/schema"
	"github.com/vaultrag/vaultrag/pkg/observability/logging"
	"github.com/vaultrag/vaultrag/pkg/vectorindex"
)

const (
	// DefaultTopK is used when a query does not specify how many chunks
	// to retrieve.
	DefaultTopK = 4

	// maxSourceFetchConcurrency bounds in-flight blob fetches per query.
	maxSourceFetchConcurrency = 4

	// NoDocumentsAnswer is returned verbatim when the search yields no
	// matches. Callers and tests rely on the exact string.
	NoDocumentsAnswer = "I could not find any relevant documents to answer your question. Try ingesting some documents first."

	// StorageFailedAnswer is returned verbatim when every source fetch
	// failed, so there is no context to generate from.
	StorageFailedAnswer = "I found matching documents but could not retrieve them from storage. Please try again later."

	// systemInstruction constrains the generation provider to the
	// retrieved context and requires citations.
	systemInstruction = "You are a helpful assistant that answers questions using only the provided context documents. " +
		"Cite which document(s) you used by their labels. " +
		"If the context does not contain enough information to answer, say so explicitly instead of guessing."
)

// QueryOptions tune a single query.
type QueryOptions struct {
	// TopK is the number of chunks to retrieve. Values < 1 fall back to
	// DefaultTopK.
	TopK int

	// Filter restricts the search to entries whose metadata it accepts.
	// Nil matches everything.
	Filter func(vectorindex.Metadata) bool
}

// Engine answers questions over the documents in the vector index. The
// index is read through a Handle so queries always see a complete index,
// even while the syncer rebuilds it.
type Engine struct {
	handle    *vectorindex.Handle
	blobs     blobstore.Store
	embedder  api.EmbeddingClient
	generator api.GenerationClient
	logger    *logging.Logger
}

// New creates a query engine.
func New(handle *vectorindex.Handle, blobs blobstore.Store, embedder api.EmbeddingClient, generator api.GenerationClient, logger *logging.Logger) *Engine {
	return &Engine{
		handle:    handle,
		blobs:     blobs,
		embedder:  embedder,
		generator: generator,
		logger:    logger,
	}
}

// Query runs the full retrieval-augmented pipeline for one question.
//
// Per-source blob fetches run concurrently and individual failures are
// tolerated: a failed source is dropped from the result. Only when every
// fetch fails does the query return the fixed storage-failure answer.
// Sources in the result are ordered by retrieval score, descending,
// regardless of fetch completion order.
func (e *Engine) Query(ctx context.Context, question string, opts QueryOptions) (*schema.RAGResult, error) {
	start := time.Now()

	topK := opts.TopK
	if topK < 1 {
		topK = DefaultTopK
	}

	vectors, err := e.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embed query: %w", api.ErrEmbeddingUnavailable)
	}

	matches := e.handle.Load().Search(vectors[0], topK, opts.Filter)
	if len(matches) == 0 {
		return &schema.RAGResult{
			Answer:  NoDocumentsAnswer,
			Sources: []schema.RAGSource{},
			Metadata: schema.RAGMetadata{
				ProcessingTimeMs:   time.Since(start).Milliseconds(),
				DocumentsRetrieved: 0,
			},
		}, nil
	}

	sources := e.fetchSources(ctx, matches)
	if len(sources) == 0 {
		return &schema.RAGResult{
			Answer:  StorageFailedAnswer,
			Sources: []schema.RAGSource{},
			Metadata: schema.RAGMetadata{
				ProcessingTimeMs:   time.Since(start).Milliseconds(),
				DocumentsRetrieved: 0,
			},
		}, nil
	}

	answer, err := e.generator.Generate(ctx, systemInstruction, buildContextBlock(sources), question)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &schema.RAGResult{
		Answer:  answer,
		Sources: sources,
		Metadata: schema.RAGMetadata{
			ProcessingTimeMs:   time.Since(start).Milliseconds(),
			DocumentsRetrieved: len(sources),
		},
	}, nil
}

// fetchSources retrieves the full source document behind each match.
// Results keep the matches' score order: each fetch writes into its own
// slot, and the slice is compacted afterwards. Duplicate blob IDs (several
// chunks of one document matching) collapse into the highest-scored slot.
func (e *Engine) fetchSources(ctx context.Context, matches []vectorindex.Match) []schema.RAGSource {
	type slot struct {
		source schema.RAGSource
		ok     bool
	}
	slots := make([]slot, len(matches))

	seen := make(map[string]bool, len(matches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxSourceFetchConcurrency)
	for i, m := range matches {
		if seen[m.Entry.Metadata.BlobID] {
			continue
		}
		seen[m.Entry.Metadata.BlobID] = true

		g.Go(func() error {
			content, err := e.blobs.Get(gctx, m.Entry.Metadata.BlobID)
			if err != nil {
				// Tolerated: drop this source, keep the rest.
				e.logger.Warn("Failed to fetch source document",
					"blob_id", m.Entry.Metadata.BlobID,
					"filename", m.Entry.Metadata.Filename,
					"error", err)
				return nil
			}
			slots[i] = slot{
				source: schema.RAGSource{
					BlobID:   m.Entry.Metadata.BlobID,
					Filename: m.Entry.Metadata.Filename,
					Content:  string(content),
					Score:    m.Score,
				},
				ok: true,
			}
			return nil
		})
	}
	_ = g.Wait()

	sources := make([]schema.RAGSource, 0, len(slots))
	for _, s := range slots {
		if s.ok {
			sources = append(sources, s.source)
		}
	}
	return sources
}

// buildContextBlock labels each source so the generation provider can cite
// it. Sources arrive in descending score order and sections keep that order.
func buildContextBlock(sources []schema.RAGSource) string {
	var b strings.Builder
	for i, src := range sources {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Document %d: %s]\n%s", i+1, src.Filename, src.Content)
	}
	return b.String()
}
