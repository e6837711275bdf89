// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

// Package syncer keeps the local vector index aligned with the registry's
// authoritative version. The registry's global version counter is the only
// clock: when it runs ahead of the local snapshot, the whole cache is
// rebuilt from blob store contents and swapped in atomically.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/vaultrag/vaultrag/pkg/blobstore"
	"github.com/vaultrag/vaultrag/pkg/observability/logging"
	"github.com/vaultrag/vaultrag/pkg/registry"
	"github.com/vaultrag/vaultrag/pkg/vectorindex"
)

// maxFetchConcurrency bounds in-flight blob fetches during a resync.
const maxFetchConcurrency = 8

// State is the syncer lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateResyncing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateResyncing:
		return "resyncing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Syncer reconciles the local vector index against the registry. All
// triggers (startup, timer, registry-write notifications, manual) funnel
// into the same single-flight SyncIfStale, so concurrent triggers collapse
// into at most one in-flight resync.
type Syncer struct {
	handle       *vectorindex.Handle
	reg          registry.Registry
	blobs        blobstore.Store
	snapshotPath string
	model        string
	logger       *logging.Logger

	group  singleflight.Group
	notify chan struct{}

	mu    sync.Mutex
	state State
}

// New creates a Syncer. Call Initialize before anything else.
func New(handle *vectorindex.Handle, reg registry.Registry, blobs blobstore.Store, snapshotPath, model string, logger *logging.Logger) *Syncer {
	return &Syncer{
		handle:       handle,
		reg:          reg,
		blobs:        blobs,
		snapshotPath: snapshotPath,
		model:        model,
		logger:       logger,
		notify:       make(chan struct{}, 1),
		state:        StateUninitialized,
	}
}

// State returns the current lifecycle state.
func (s *Syncer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Syncer) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Initialize loads the durable snapshot into the readable index. A missing
// snapshot bootstraps an empty index at version 0 and persists it; a corrupt
// snapshot is discarded and treated as maximally stale, forcing the next
// SyncIfStale to rebuild from the registry and blob store.
func (s *Syncer) Initialize(ctx context.Context) error {
	s.setState(StateLoading)

	snap, err := vectorindex.LoadSnapshot(s.snapshotPath)
	switch {
	case err == nil:
		ix, ferr := vectorindex.FromSnapshot(snap)
		if ferr != nil {
			return s.bootstrapEmpty("snapshot failed index rebuild", ferr)
		}
		s.handle.Swap(ix)
		s.setState(StateReady)
		s.logger.Info("Loaded vector index snapshot",
			"version", snap.Version,
			"entries", len(snap.Entries),
			"dimensions", snap.Dimensions)
		return nil

	case errors.Is(err, os.ErrNotExist):
		s.logger.Info("No snapshot found, starting with empty index", "path", s.snapshotPath)
		return s.persistEmpty()

	case errors.Is(err, vectorindex.ErrCorruptSnapshot):
		return s.bootstrapEmpty("corrupt snapshot discarded", err)

	default:
		s.setState(StateUninitialized)
		return fmt.Errorf("load snapshot: %w", err)
	}
}

func (s *Syncer) bootstrapEmpty(reason string, cause error) error {
	s.logger.Warn(reason+", rebuilding from registry", "error", cause)
	return s.persistEmpty()
}

func (s *Syncer) persistEmpty() error {
	ix := vectorindex.New(s.model)
	if err := vectorindex.SaveSnapshot(s.snapshotPath, ix.Snapshot()); err != nil {
		s.setState(StateUninitialized)
		return fmt.Errorf("persist empty snapshot: %w", err)
	}
	s.handle.Swap(ix)
	s.setState(StateReady)
	return nil
}

// IsStale reports whether the registry's global version has run ahead of
// the local index version.
func (s *Syncer) IsStale(ctx context.Context) (bool, error) {
	stats, err := s.reg.Stats(ctx)
	if err != nil {
		return false, fmt.Errorf("registry stats: %w", err)
	}
	return stats.Version > s.handle.Load().Version(), nil
}

// SyncIfStale rebuilds the local index from the registry and blob store if
// it is stale. Returns whether a resync occurred. The rebuild is
// all-or-nothing: the new index is assembled off to the side and swapped in
// with a single store; any fetch failure aborts the whole attempt and the
// prior index keeps serving reads.
//
// Concurrent callers share one in-flight resync through a single-flight
// group: a resync already running satisfies all waiters when it completes.
func (s *Syncer) SyncIfStale(ctx context.Context) (bool, error) {
	v, err, _ := s.group.Do("resync", func() (any, error) {
		return s.resync(ctx)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (s *Syncer) resync(ctx context.Context) (bool, error) {
	stats, err := s.reg.Stats(ctx)
	if err != nil {
		return false, fmt.Errorf("registry stats: %w", err)
	}
	local := s.handle.Load().Version()
	if stats.Version <= local {
		return false, nil
	}

	s.setState(StateResyncing)
	defer s.setState(StateReady)

	s.logger.Info("Resyncing vector index",
		"local_version", local,
		"registry_version", stats.Version)

	docs, err := s.reg.ListDocuments(ctx)
	if err != nil {
		return false, fmt.Errorf("list documents: %w", err)
	}

	// Fetch every document's vector blob concurrently, keeping document
	// order so rebuilds are deterministic.
	perDoc := make([][]vectorindex.Entry, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxFetchConcurrency)
	for i, doc := range docs {
		g.Go(func() error {
			data, err := s.blobs.Get(gctx, doc.VectorBlobID)
			if err != nil {
				return fmt.Errorf("fetch vectors for %s: %w", doc.DocumentKey, err)
			}
			entries, err := vectorindex.DecodeEntries(data)
			if err != nil {
				return fmt.Errorf("decode vectors for %s: %w", doc.DocumentKey, err)
			}
			perDoc[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn("Resync aborted, keeping previous index", "error", err)
		return false, err
	}

	next := vectorindex.New(s.model)
	for _, entries := range perDoc {
		if err := next.Add(entries...); err != nil {
			s.logger.Warn("Resync aborted, keeping previous index", "error", err)
			return false, fmt.Errorf("rebuild index: %w", err)
		}
	}
	next.SetVersion(stats.Version)

	// Persist and swap under the handle's writer lock, so an in-flight
	// ingest cannot interleave its own index mutation or snapshot write.
	// The swap is the only observable transition: readers see either the
	// old index or the fully rebuilt one.
	err = s.handle.Commit(func(_ *vectorindex.Index) (*vectorindex.Index, error) {
		if err := vectorindex.SaveSnapshot(s.snapshotPath, next.Snapshot()); err != nil {
			return nil, err
		}
		return next, nil
	})
	if err != nil {
		s.logger.Warn("Resync aborted, keeping previous index", "error", err)
		return false, err
	}

	s.logger.Info("Resync complete",
		"version", stats.Version,
		"documents", len(docs),
		"entries", next.Size())
	return true, nil
}

// Notify requests an immediate staleness check from the Run loop. Used by
// registry-write event subscriptions. Non-blocking; coalesces with any
// pending notification.
func (s *Syncer) Notify() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Run triggers SyncIfStale on a fixed interval and on Notify events until
// ctx is cancelled. Both paths share the single-flight guard, so a timer
// tick during an event-triggered resync never starts a duplicate.
func (s *Syncer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Sync loop stopped")
			return
		case <-ticker.C:
		case <-s.notify:
		}

		if _, err := s.SyncIfStale(ctx); err != nil {
			// Stale cache keeps serving; retry on next tick.
			s.logger.Warn("Background sync failed", "error", err)
		}
	}
}
