// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

package syncer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vaultrag/vaultrag/pkg/blobstore"
	blobmem "github.com/vaultrag/vaultrag/pkg/blobstore/memory"
	"github.com/vaultrag/vaultrag/pkg/observability/logging"
	"github.com/vaultrag/vaultrag/pkg/registry"
	regmem "github.com/vaultrag/vaultrag/pkg/registry/memory"
	"github.com/vaultrag/vaultrag/pkg/vectorindex"
)

const testModel = "text-embedding-3-small"

func newSyncer(t *testing.T) (*Syncer, *vectorindex.Handle, *regmem.Registry, *blobmem.Store, string) {
	t.Helper()
	handle := vectorindex.NewHandle(vectorindex.New(testModel))
	reg := regmem.New("test")
	blobs := blobmem.New()
	path := filepath.Join(t.TempDir(), "index.snapshot")
	s := New(handle, reg, blobs, path, testModel, logging.Discard())
	return s, handle, reg, blobs, path
}

// seedDocument stores a vector blob and registers the document, returning
// the new registry version.
func seedDocument(t *testing.T, reg *regmem.Registry, blobs *blobmem.Store, key string, entries []vectorindex.Entry) int64 {
	t.Helper()
	ctx := context.Background()

	data, err := vectorindex.EncodeEntries(entries)
	if err != nil {
		t.Fatalf("EncodeEntries: %v", err)
	}
	blobID, err := blobs.Put(ctx, data)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	version, err := reg.AddDocument(ctx, &registry.Record{
		DocumentKey:  key,
		VectorBlobID: blobID,
		ChunkCount:   len(entries),
	})
	if err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	return version
}

func entries(key string, embeddings ...[]float32) []vectorindex.Entry {
	out := make([]vectorindex.Entry, len(embeddings))
	for i, emb := range embeddings {
		out[i] = vectorindex.Entry{
			Text:      key,
			Embedding: emb,
			Metadata: vectorindex.Metadata{
				BlobID:      key,
				Filename:    key + ".txt",
				ChunkIndex:  i,
				TotalChunks: len(embeddings),
			},
		}
	}
	return out
}

func TestInitialize_MissingSnapshot(t *testing.T) {
	s, handle, _, _, path := newSyncer(t)

	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := s.State(); got != StateReady {
		t.Errorf("state = %v, want %v", got, StateReady)
	}
	ix := handle.Load()
	if ix.Size() != 0 || ix.Version() != 0 {
		t.Errorf("got size=%d version=%d, want empty index at version 0", ix.Size(), ix.Version())
	}

	// The empty snapshot must be persisted so restarts are deterministic.
	if _, err := vectorindex.LoadSnapshot(path); err != nil {
		t.Errorf("LoadSnapshot after bootstrap: %v", err)
	}
}

func TestInitialize_CorruptSnapshot(t *testing.T) {
	s, handle, _, _, path := newSyncer(t)

	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := handle.Load().Version(); got != 0 {
		t.Errorf("version = %d, want 0 after discarding corrupt snapshot", got)
	}
}

func TestInitialize_LoadsExistingSnapshot(t *testing.T) {
	s, handle, _, _, path := newSyncer(t)

	ix := vectorindex.New(testModel)
	if err := ix.Add(entries("doc", []float32{1, 0, 0})...); err != nil {
		t.Fatal(err)
	}
	ix.SetVersion(7)
	if err := vectorindex.SaveSnapshot(path, ix.Snapshot()); err != nil {
		t.Fatal(err)
	}

	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	got := handle.Load()
	if got.Version() != 7 || got.Size() != 1 {
		t.Errorf("got version=%d size=%d, want version=7 size=1", got.Version(), got.Size())
	}
}

func TestIsStale_TracksRegistryVersionJump(t *testing.T) {
	s, handle, reg, _, _ := newSyncer(t)
	ctx := context.Background()
	if err := s.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	handle.Load().SetVersion(3)
	reg.SetVersion(3)

	stale, err := s.IsStale(ctx)
	if err != nil {
		t.Fatalf("IsStale: %v", err)
	}
	if stale {
		t.Error("stale = true with matching versions")
	}

	// The registry jumps ahead between two checks.
	reg.SetVersion(5)
	stale, err = s.IsStale(ctx)
	if err != nil {
		t.Fatalf("IsStale: %v", err)
	}
	if !stale {
		t.Error("stale = false after the registry version jumped")
	}

	if _, err := s.SyncIfStale(ctx); err != nil {
		t.Fatalf("SyncIfStale: %v", err)
	}
	if got := handle.Load().Version(); got != 5 {
		t.Errorf("local version = %d, want 5", got)
	}
	stale, err = s.IsStale(ctx)
	if err != nil {
		t.Fatalf("IsStale: %v", err)
	}
	if stale {
		t.Error("stale = true after a successful sync")
	}
}

func TestSyncIfStale_NoopWhenCurrent(t *testing.T) {
	s, _, _, _, _ := newSyncer(t)
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	synced, err := s.SyncIfStale(context.Background())
	if err != nil {
		t.Fatalf("SyncIfStale: %v", err)
	}
	if synced {
		t.Error("synced = true, want false when local matches registry")
	}
}

func TestSyncIfStale_RebuildsFromRegistry(t *testing.T) {
	s, handle, reg, blobs, path := newSyncer(t)
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	seedDocument(t, reg, blobs, "alpha", entries("alpha", []float32{1, 0, 0}, []float32{0, 1, 0}))
	version := seedDocument(t, reg, blobs, "beta", entries("beta", []float32{0, 0, 1}))

	synced, err := s.SyncIfStale(context.Background())
	if err != nil {
		t.Fatalf("SyncIfStale: %v", err)
	}
	if !synced {
		t.Fatal("synced = false, want true")
	}

	ix := handle.Load()
	if ix.Version() != version {
		t.Errorf("version = %d, want %d", ix.Version(), version)
	}
	if ix.Size() != 3 {
		t.Errorf("size = %d, want 3", ix.Size())
	}
	if got := s.State(); got != StateReady {
		t.Errorf("state = %v, want %v", got, StateReady)
	}

	// The rebuilt index must be durable.
	snap, err := vectorindex.LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if snap.Version != version || len(snap.Entries) != 3 {
		t.Errorf("snapshot version=%d entries=%d, want version=%d entries=3",
			snap.Version, len(snap.Entries), version)
	}
}

func TestSyncIfStale_PicksUpRemoval(t *testing.T) {
	s, handle, reg, blobs, _ := newSyncer(t)
	ctx := context.Background()
	if err := s.Initialize(ctx); err != nil {
		t.Fatal(err)
	}

	seedDocument(t, reg, blobs, "alpha", entries("alpha", []float32{1, 0, 0}))
	seedDocument(t, reg, blobs, "beta", entries("beta", []float32{0, 1, 0}))
	if _, err := s.SyncIfStale(ctx); err != nil {
		t.Fatal(err)
	}

	version, err := reg.RemoveDocument(ctx, "alpha")
	if err != nil {
		t.Fatal(err)
	}
	synced, err := s.SyncIfStale(ctx)
	if err != nil {
		t.Fatalf("SyncIfStale after removal: %v", err)
	}
	if !synced {
		t.Fatal("synced = false, want true after removal bumped the version")
	}

	ix := handle.Load()
	if ix.Size() != 1 || ix.Version() != version {
		t.Errorf("got size=%d version=%d, want size=1 version=%d", ix.Size(), ix.Version(), version)
	}
	matches := ix.Search([]float32{1, 0, 0}, 5, nil)
	for _, m := range matches {
		if m.Entry.Metadata.BlobID == "alpha" {
			t.Error("removed document still present after resync")
		}
	}
}

// failingStore wraps a Store so Get fails for a chosen blob ID.
type failingStore struct {
	blobstore.Store
	failID string
}

func (f *failingStore) Get(ctx context.Context, id string) ([]byte, error) {
	if id == f.failID {
		return nil, blobstore.ErrStoreUnavailable
	}
	return f.Store.Get(ctx, id)
}

func TestSyncIfStale_FailedFetchKeepsPreviousIndex(t *testing.T) {
	_, handle, reg, blobs, path := newSyncer(t)
	ctx := context.Background()

	seedDocument(t, reg, blobs, "alpha", entries("alpha", []float32{1, 0, 0}))

	s := New(handle, reg, blobs, path, testModel, logging.Discard())
	if err := s.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SyncIfStale(ctx); err != nil {
		t.Fatal(err)
	}
	before := handle.Load()
	beforeSnap := before.Snapshot()

	version := seedDocument(t, reg, blobs, "beta", entries("beta", []float32{0, 1, 0}))
	rec, err := reg.GetDocument(ctx, "beta")
	if err != nil {
		t.Fatal(err)
	}

	broken := New(handle, reg, &failingStore{Store: blobs, failID: rec.VectorBlobID}, path, testModel, logging.Discard())
	synced, err := broken.SyncIfStale(ctx)
	if !errors.Is(err, blobstore.ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
	if synced {
		t.Error("synced = true, want false on aborted resync")
	}

	after := handle.Load()
	if after != before {
		t.Fatal("index pointer changed after failed resync")
	}
	afterSnap := after.Snapshot()
	beforeSnap.CreatedAt, afterSnap.CreatedAt = time.Time{}, time.Time{}
	if !reflect.DeepEqual(beforeSnap, afterSnap) {
		t.Error("index contents changed after failed resync")
	}
	if after.Version() >= version {
		t.Errorf("version advanced to %d despite aborted resync", after.Version())
	}

	// Next successful attempt catches up.
	if _, err := broken2(t, handle, reg, blobs, path).SyncIfStale(ctx); err != nil {
		t.Fatalf("recovery sync: %v", err)
	}
	if got := handle.Load().Version(); got != version {
		t.Errorf("version = %d after recovery, want %d", got, version)
	}
}

func broken2(t *testing.T, handle *vectorindex.Handle, reg registry.Registry, blobs blobstore.Store, path string) *Syncer {
	t.Helper()
	return New(handle, reg, blobs, path, testModel, logging.Discard())
}

// gatedStore blocks Get until released, counting calls, to observe overlap.
type gatedStore struct {
	blobstore.Store
	release chan struct{}
	gets    atomic.Int32
}

func (g *gatedStore) Get(ctx context.Context, id string) ([]byte, error) {
	g.gets.Add(1)
	<-g.release
	return g.Store.Get(ctx, id)
}

func TestSyncIfStale_ConcurrentCallsCollapse(t *testing.T) {
	_, handle, reg, blobs, path := newSyncer(t)
	ctx := context.Background()

	seedDocument(t, reg, blobs, "alpha", entries("alpha", []float32{1, 0, 0}))

	gated := &gatedStore{Store: blobs, release: make(chan struct{})}
	s := New(handle, reg, gated, path, testModel, logging.Discard())
	if err := s.Initialize(ctx); err != nil {
		t.Fatal(err)
	}

	const callers = 8
	results := make(chan bool, callers)
	var wg sync.WaitGroup
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			synced, err := s.SyncIfStale(ctx)
			if err != nil {
				t.Errorf("SyncIfStale: %v", err)
			}
			results <- synced
		}()
	}

	// Let all callers pile up on the single-flight group, then release
	// the one in-flight fetch.
	time.Sleep(50 * time.Millisecond)
	close(gated.release)
	wg.Wait()
	close(results)

	if got := gated.gets.Load(); got != 1 {
		t.Errorf("blob fetches = %d, want 1 (single in-flight resync)", got)
	}
	var sharedResync int
	for synced := range results {
		if synced {
			sharedResync++
		}
	}
	if sharedResync == 0 {
		t.Error("no caller observed synced = true")
	}
}

func TestNotify_TriggersSync(t *testing.T) {
	s, handle, reg, blobs, _ := newSyncer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	go s.Run(ctx, time.Hour)

	version := seedDocument(t, reg, blobs, "alpha", entries("alpha", []float32{1, 0, 0}))
	s.Notify()

	deadline := time.After(2 * time.Second)
	for handle.Load().Version() != version {
		select {
		case <-deadline:
			t.Fatalf("index never reached version %d (at %d)", version, handle.Load().Version())
		case <-time.After(10 * time.Millisecond):
		}
	}
}
