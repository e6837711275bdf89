// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

package vectorindex

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrCorruptSnapshot is returned when a persisted snapshot fails to parse or
// fails the structural-shape check. Callers recover by discarding the
// snapshot and rebuilding from the registry and blob store.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

// Snapshot is the serialized form of the index: the durable local cache.
type Snapshot struct {
	Version        int64     `json:"version"`
	EmbeddingModel string    `json:"embedding_model"`
	Dimensions     int       `json:"dimensions"`
	Entries        []Entry   `json:"entries"`
	CreatedAt      time.Time `json:"created_at"`
}

// Snapshot captures the current index contents.
func (ix *Index) Snapshot() Snapshot {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return Snapshot{
		Version:        ix.version,
		EmbeddingModel: ix.model,
		Dimensions:     ix.dimension,
		Entries:        append([]Entry(nil), ix.entries...),
		CreatedAt:      time.Now().UTC(),
	}
}

// MarshalSnapshot serializes a snapshot to JSON.
func MarshalSnapshot(s Snapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

// UnmarshalSnapshot parses and structurally validates a snapshot payload.
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if err := validateSnapshot(s); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

func validateSnapshot(s Snapshot) error {
	if s.Version < 0 {
		return fmt.Errorf("negative version %d: %w", s.Version, ErrCorruptSnapshot)
	}
	if s.Dimensions < 0 {
		return fmt.Errorf("negative dimensions %d: %w", s.Dimensions, ErrCorruptSnapshot)
	}
	if len(s.Entries) > 0 && s.Dimensions == 0 {
		return fmt.Errorf("entries present but dimensions is 0: %w", ErrCorruptSnapshot)
	}
	for i, e := range s.Entries {
		if len(e.Embedding) != s.Dimensions {
			return fmt.Errorf("entry %d has dimension %d, snapshot declares %d: %w",
				i, len(e.Embedding), s.Dimensions, ErrCorruptSnapshot)
		}
	}
	return nil
}

// SaveSnapshot writes a snapshot to path atomically (temp file + rename), so
// a crash mid-write never leaves a truncated cache behind.
func SaveSnapshot(path string, s Snapshot) error {
	data, err := MarshalSnapshot(s)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	// The temp file name must be unique per writer: concurrent saves to
	// the same path would otherwise race on one shared temp file and a
	// loser's rename fails after the winner consumed it.
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-")
	if err != nil {
		return fmt.Errorf("create snapshot temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a snapshot from path. A missing file is reported as
// os.ErrNotExist; callers treat that as a fresh-empty-index bootstrap, not
// an error condition.
func LoadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	return UnmarshalSnapshot(data)
}

// documentVectors is the wire form of a per-document vector blob: the
// embedded entries ingestion stores alongside the raw document, and resync
// reads back to rebuild the index.
type documentVectors struct {
	Entries []Entry `json:"entries"`
}

// EncodeEntries serializes a document's embedded entries for blob storage.
func EncodeEntries(entries []Entry) ([]byte, error) {
	data, err := json.Marshal(documentVectors{Entries: entries})
	if err != nil {
		return nil, fmt.Errorf("encode entries: %w", err)
	}
	return data, nil
}

// DecodeEntries parses a vector blob produced by EncodeEntries.
func DecodeEntries(data []byte) ([]Entry, error) {
	var dv documentVectors
	if err := json.Unmarshal(data, &dv); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}
	return dv.Entries, nil
}
