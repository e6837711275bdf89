// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

package vectorindex

import (
	"errors"
	"testing"
)

func entry(text string, emb []float32, blobID string) Entry {
	return Entry{
		Text:      text,
		Embedding: emb,
		Metadata:  Metadata{BlobID: blobID, Filename: text + ".txt", TotalChunks: 1},
	}
}

func TestIndex_FirstAddFixesDimension(t *testing.T) {
	ix := New("test-model")
	if err := ix.Add(entry("a", []float32{1, 0, 0}, "b1")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := ix.Dimension(); got != 3 {
		t.Errorf("Dimension() = %d, want 3", got)
	}

	err := ix.Add(entry("b", []float32{1, 0}, "b2"))
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if ix.Size() != 1 {
		t.Errorf("rejected add must leave index unchanged, size = %d", ix.Size())
	}
}

func TestIndex_AddRejectsWholeBatch(t *testing.T) {
	ix := New("test-model")
	err := ix.Add(
		entry("a", []float32{1, 0}, "b1"),
		entry("b", []float32{1, 0, 0}, "b2"),
	)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if ix.Size() != 0 {
		t.Errorf("failed batch must not partially apply, size = %d", ix.Size())
	}
}

func TestIndex_AddRejectsEmptyEmbedding(t *testing.T) {
	ix := New("test-model")
	if err := ix.Add(entry("a", nil, "b1")); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch for empty embedding, got %v", err)
	}
}

func TestIndex_SearchOrdering(t *testing.T) {
	ix := New("test-model")
	// Query will be (1,0): scores are cos = 1.0, ~0.707, 0.0
	must(t, ix.Add(
		entry("far", []float32{0, 1}, "b-far"),
		entry("mid", []float32{1, 1}, "b-mid"),
		entry("near", []float32{1, 0}, "b-near"),
	))

	got := ix.Search([]float32{1, 0}, 3, nil)
	if len(got) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(got))
	}
	wantOrder := []string{"near", "mid", "far"}
	for i, w := range wantOrder {
		if got[i].Entry.Text != w {
			t.Errorf("match[%d] = %q, want %q", i, got[i].Entry.Text, w)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("scores not non-increasing at %d: %f > %f", i, got[i].Score, got[i-1].Score)
		}
	}
}

func TestIndex_SearchTiesKeepInsertionOrder(t *testing.T) {
	ix := New("test-model")
	// Identical embeddings: identical scores.
	must(t, ix.Add(
		entry("first", []float32{1, 0}, "b1"),
		entry("second", []float32{1, 0}, "b2"),
		entry("third", []float32{1, 0}, "b3"),
	))

	got := ix.Search([]float32{1, 0}, 3, nil)
	wantOrder := []string{"first", "second", "third"}
	for i, w := range wantOrder {
		if got[i].Entry.Text != w {
			t.Errorf("tie order broken: match[%d] = %q, want %q", i, got[i].Entry.Text, w)
		}
	}
}

func TestIndex_SearchTopKBound(t *testing.T) {
	ix := New("test-model")
	must(t, ix.Add(
		entry("a", []float32{1, 0}, "b1"),
		entry("b", []float32{0, 1}, "b2"),
		entry("c", []float32{1, 1}, "b3"),
	))

	tests := []struct {
		k    int
		want int
	}{
		{1, 1},
		{2, 2},
		{3, 3},
		{10, 3},
		{0, 0},
		{-1, 0},
	}
	for _, tt := range tests {
		if got := len(ix.Search([]float32{1, 0}, tt.k, nil)); got != tt.want {
			t.Errorf("Search(k=%d) returned %d matches, want %d", tt.k, got, tt.want)
		}
	}
}

func TestIndex_SearchFilter(t *testing.T) {
	ix := New("test-model")
	must(t, ix.Add(
		entry("a", []float32{1, 0}, "keep"),
		entry("b", []float32{1, 0}, "drop"),
		entry("c", []float32{0, 1}, "keep"),
	))

	got := ix.Search([]float32{1, 0}, 10, func(m Metadata) bool {
		return m.BlobID == "keep"
	})
	if len(got) != 2 {
		t.Fatalf("expected 2 filtered matches, got %d", len(got))
	}
	for _, m := range got {
		if m.Entry.Metadata.BlobID != "keep" {
			t.Errorf("filter leaked entry %q", m.Entry.Text)
		}
	}
}

func TestIndex_SearchEmpty(t *testing.T) {
	ix := New("test-model")
	if got := ix.Search([]float32{1, 0}, 4, nil); len(got) != 0 {
		t.Errorf("expected no matches from an empty index, got %d", len(got))
	}
}

func TestIndex_ZeroNormScoresZero(t *testing.T) {
	ix := New("test-model")
	must(t, ix.Add(entry("zero", []float32{0, 0}, "b1")))
	got := ix.Search([]float32{1, 0}, 1, nil)
	if len(got) != 1 || got[0].Score != 0 {
		t.Errorf("zero-norm embedding should score 0, got %+v", got)
	}
}

func TestHandle_Swap(t *testing.T) {
	a := New("test-model")
	b := New("test-model")
	must(t, b.Add(entry("x", []float32{1}, "b1")))

	h := NewHandle(a)
	if h.Load() != a {
		t.Fatal("Load returned wrong index")
	}
	h.Swap(b)
	if h.Load() != b {
		t.Fatal("Swap did not replace the index")
	}
	if h.Load().Size() != 1 {
		t.Errorf("swapped index lost entries")
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
