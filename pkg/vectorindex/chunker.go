// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

package vectorindex

import "strings"

// DefaultChunkSize is the default chunk size in characters.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default overlap between chunks in characters.
const DefaultChunkOverlap = 200

// ChunkText splits text into overlapping fixed-size windows. Windows advance
// by size-overlap characters. Windows that are all whitespace are dropped;
// the remaining windows are returned whitespace-trimmed. If every window
// trims to empty, the original text is returned as a single chunk so no
// document ever produces zero chunks.
//
// ChunkText is pure: the same input always yields the same boundaries.
// If size <= 0, DefaultChunkSize is used. If overlap < 0 or >= size,
// DefaultChunkOverlap is used (clamped below size).
func ChunkText(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
		if overlap >= size {
			overlap = size / 4
		}
	}

	if len(text) == 0 {
		return []string{text}
	}

	step := size - overlap
	var chunks []string
	for start := 0; start < len(text); start += step {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		window := strings.TrimSpace(text[start:end])
		if window != "" {
			chunks = append(chunks, window)
		}
		if end == len(text) {
			break
		}
	}

	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}
