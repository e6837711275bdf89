// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

// Package extract converts uploaded payloads into plain text suitable for
// chunking and embedding.
package extract

import (
	"path/filepath"
	"strings"
)

// Text extracts plain text from content based on the filename extension.
// Unsupported formats pass through as plain text.
func Text(content []byte, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".html", ".htm":
		return fromHTML(content)
	case ".csv":
		return fromCSV(content)
	case ".json":
		return fromJSON(content)
	case ".jsonl":
		return fromJSONL(content)
	default:
		return string(content), nil
	}
}
