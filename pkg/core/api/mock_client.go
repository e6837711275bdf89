// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"fmt"
	"hash/fnv"
)

// MockEmbeddingClient is a deterministic EmbeddingClient for testing: the
// embedding of a text is derived from an FNV hash of its bytes, so equal
// texts embed identically and distinct texts (almost always) differ.
type MockEmbeddingClient struct {
	// Err, when non-nil, is returned by every Embed call.
	Err        error
	dimensions int
}

// NewMockEmbeddingClient creates a mock embedding client with the given
// dimension.
func NewMockEmbeddingClient(dimensions int) *MockEmbeddingClient {
	return &MockEmbeddingClient{dimensions: dimensions}
}

// Embed returns one deterministic pseudo-embedding per input.
func (m *MockEmbeddingClient) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([][]float32, len(inputs))
	for i, text := range inputs {
		vec := make([]float32, m.dimensions)
		h := fnv.New32a()
		h.Write([]byte(text))
		seed := h.Sum32()
		for j := range vec {
			seed = seed*1664525 + 1013904223
			vec[j] = float32(seed%1000)/1000.0 - 0.5
		}
		out[i] = vec
	}
	return out, nil
}

// Model returns a fixed mock model identifier.
func (m *MockEmbeddingClient) Model() string {
	return "mock-embedding"
}

// Dimensions returns the configured dimension.
func (m *MockEmbeddingClient) Dimensions() int {
	return m.dimensions
}

// MockGenerationClient is a GenerationClient for testing that echoes what it
// was asked, so assertions can check the prompt assembly.
type MockGenerationClient struct {
	// Answer, when non-empty, is returned verbatim.
	Answer string
	// Err, when non-nil, is returned by every Generate call.
	Err error

	// LastSystem, LastContext and LastQuestion record the most recent call.
	LastSystem   string
	LastContext  string
	LastQuestion string
}

// Generate records the call and returns the canned answer.
func (m *MockGenerationClient) Generate(_ context.Context, systemInstruction, contextBlock, question string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	m.LastSystem = systemInstruction
	m.LastContext = contextBlock
	m.LastQuestion = question
	if m.Answer != "" {
		return m.Answer, nil
	}
	return fmt.Sprintf("Mock answer to: %s", question), nil
}
