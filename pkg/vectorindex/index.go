// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

// Package vectorindex holds the local vector cache: embedded document chunks,
// brute-force cosine similarity search, and versioned snapshot persistence.
package vectorindex

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
)

// ErrDimensionMismatch is returned when an entry's embedding length does not
// match the index dimension. The index is left unchanged.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Metadata identifies where an entry came from. The named fields are required
// for every entry produced by ingestion; Extra carries collaborator-specific
// fields without widening the core contract.
type Metadata struct {
	BlobID      string            `json:"blob_id"`
	Filename    string            `json:"filename"`
	ChunkIndex  int               `json:"chunk_index"`
	TotalChunks int               `json:"total_chunks"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Entry is a single embedded chunk. Entries are immutable once added; updates
// replace the whole index on resync.
type Entry struct {
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
	Metadata  Metadata  `json:"metadata"`
}

// Match is a search hit with its similarity score.
type Match struct {
	Entry Entry
	Score float64
}

// Index is the in-memory vector index. The first Add fixes the dimension;
// every retained entry's embedding length equals that dimension. Reads and
// writes are guarded by an internal RWMutex; whole-index replacement happens
// through Handle, never by mutating an Index in place.
type Index struct {
	mu        sync.RWMutex
	version   int64
	dimension int
	model     string
	entries   []Entry
}

// New creates an empty index at version 0 for the given embedding model.
// The dimension is fixed by the first Add.
func New(model string) *Index {
	return &Index{model: model}
}

// FromSnapshot rebuilds an index from a snapshot, validating the dimension
// invariant on every entry.
func FromSnapshot(s Snapshot) (*Index, error) {
	for i, e := range s.Entries {
		if len(e.Embedding) != s.Dimensions {
			return nil, fmt.Errorf("entry %d has dimension %d, snapshot declares %d: %w",
				i, len(e.Embedding), s.Dimensions, ErrCorruptSnapshot)
		}
	}
	return &Index{
		version:   s.Version,
		dimension: s.Dimensions,
		model:     s.EmbeddingModel,
		entries:   append([]Entry(nil), s.Entries...),
	}, nil
}

// Add appends entries. If the index is empty the first entry fixes the
// dimension. Any mismatched entry rejects the whole batch and leaves the
// index unchanged.
func (ix *Index) Add(entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	dim := ix.dimension
	if dim == 0 {
		dim = len(entries[0].Embedding)
		if dim == 0 {
			return fmt.Errorf("empty embedding: %w", ErrDimensionMismatch)
		}
	}
	for i, e := range entries {
		if len(e.Embedding) != dim {
			return fmt.Errorf("entry %d has dimension %d, index expects %d: %w",
				i, len(e.Embedding), dim, ErrDimensionMismatch)
		}
	}

	ix.dimension = dim
	ix.entries = append(ix.entries, entries...)
	return nil
}

// Search returns the top k entries by cosine similarity to query, in
// non-increasing score order. Ties keep insertion order. The filter, if
// non-nil, restricts candidates by metadata. Fewer than k results are
// returned when fewer entries match.
func (ix *Index) Search(query []float32, k int, filter func(Metadata) bool) []Match {
	if k <= 0 {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	matches := make([]Match, 0, len(ix.entries))
	for _, e := range ix.entries {
		if filter != nil && !filter(e.Metadata) {
			continue
		}
		matches = append(matches, Match{Entry: e, Score: cosineSimilarity(query, e.Embedding)})
	}

	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// Size returns the number of entries.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Dimension returns the fixed embedding dimension, or 0 if nothing has been
// added yet.
func (ix *Index) Dimension() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dimension
}

// Version returns the registry version this index was built against.
func (ix *Index) Version() int64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.version
}

// SetVersion records the registry version the current contents correspond to.
func (ix *Index) SetVersion(v int64) {
	ix.mu.Lock()
	ix.version = v
	ix.mu.Unlock()
}

// Model returns the embedding model identifier.
func (ix *Index) Model() string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.model
}

// cosineSimilarity computes the cosine of the angle between a and b.
// Zero-norm vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Handle is the atomically swappable reference to the readable index.
// Readers always observe a fully built index; resync builds a replacement
// off to the side and swaps it in with a single store. Writers — in-place
// additions and whole-index replacement alike — serialize on the handle's
// writer lock via Commit and Swap.
type Handle struct {
	wmu sync.Mutex
	ptr atomic.Pointer[Index]
}

// NewHandle creates a Handle pointing at the given index.
func NewHandle(ix *Index) *Handle {
	h := &Handle{}
	h.ptr.Store(ix)
	return h
}

// Load returns the current readable index.
func (h *Handle) Load() *Index {
	return h.ptr.Load()
}

// Swap replaces the readable index in one step.
func (h *Handle) Swap(ix *Index) {
	h.wmu.Lock()
	defer h.wmu.Unlock()
	h.ptr.Store(ix)
}

// Commit runs fn under the handle's writer lock, with the current index as
// input. fn returns the index to publish — the same instance for in-place
// writes, a replacement for whole-index rebuilds — or an error, in which
// case the handle is left untouched. No swap can interleave with fn, so a
// writer's read-mutate-persist sequence stays consistent with concurrent
// rebuilds.
func (h *Handle) Commit(fn func(current *Index) (*Index, error)) error {
	h.wmu.Lock()
	defer h.wmu.Unlock()
	next, err := fn(h.ptr.Load())
	if err != nil {
		return err
	}
	h.ptr.Store(next)
	return nil
}
