// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"strings"
	"testing"
)

func TestText(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  []byte
		contains string // substring the result should contain
		wantErr  bool
	}{
		{
			name:     "plain text passthrough",
			filename: "readme.txt",
			content:  []byte("Hello, world!"),
			contains: "Hello, world!",
		},
		{
			name:     "unknown extension treated as text",
			filename: "data.xyz",
			content:  []byte("raw content"),
			contains: "raw content",
		},
		{
			name:     "HTML extraction",
			filename: "page.html",
			content:  []byte("<html><body><p>Hello</p><script>var x=1;</script><p>World</p></body></html>"),
			contains: "Hello",
		},
		{
			name:     "HTML skips script",
			filename: "page.htm",
			content:  []byte("<html><script>alert('x')</script><body>visible</body></html>"),
			contains: "visible",
		},
		{
			name:     "CSV extraction",
			filename: "data.csv",
			content:  []byte("name,age,city\nAlice,30,NYC\nBob,25,LA"),
			contains: "Alice",
		},
		{
			name:     "JSON pretty-print",
			filename: "config.json",
			content:  []byte(`{"key":"value","num":42}`),
			contains: "\"key\": \"value\"",
		},
		{
			name:     "JSONL extraction",
			filename: "logs.jsonl",
			content:  []byte("{\"a\":1}\n{\"b\":2}"),
			contains: "\"a\": 1",
		},
		{
			name:     "invalid JSON falls back to raw",
			filename: "bad.json",
			content:  []byte("not json at all"),
			contains: "not json at all",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Text(tt.content, tt.filename)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Text() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !strings.Contains(result, tt.contains) {
				t.Errorf("Text() = %q, want substring %q", result, tt.contains)
			}
		})
	}

	t.Run("HTML script content excluded", func(t *testing.T) {
		result, err := Text([]byte("<html><body>ok<script>secret()</script></body></html>"), "p.html")
		if err != nil {
			t.Fatal(err)
		}
		if strings.Contains(result, "secret") {
			t.Errorf("Text() = %q, script content should be stripped", result)
		}
	})
}
