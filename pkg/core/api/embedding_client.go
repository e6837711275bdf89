// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

// Package api holds the clients for the external model providers: the
// embedding provider that maps text to vectors, and the generation provider
// that produces grounded answers. Both are OpenAI-compatible and both are
// consumed, never implemented, by the core.
package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrEmbeddingUnavailable is returned when the embedding provider cannot be
// reached or rejects the request.
var ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

// EmbeddingClient generates vector embeddings from text inputs.
type EmbeddingClient interface {
	// Embed returns one embedding per input, in input order.
	Embed(ctx context.Context, inputs []string) ([][]float32, error)

	// Model returns the embedding model identifier, recorded in snapshots
	// so a cache built with one model is never searched with another.
	Model() string

	// Dimensions returns the embedding dimension the client requests.
	Dimensions() int
}

// OpenAIEmbeddingClient implements EmbeddingClient using the OpenAI SDK.
type OpenAIEmbeddingClient struct {
	client     openai.Client
	model      string
	dimensions int
}

// NewOpenAIEmbeddingClient creates an embedding client with its own base URL and API key.
func NewOpenAIEmbeddingClient(baseURL, apiKey, model string, dimensions int) *OpenAIEmbeddingClient {
	opts := []option.RequestOption{}

	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	} else {
		opts = append(opts, option.WithAPIKey("dummy"))
	}

	return &OpenAIEmbeddingClient{
		client:     openai.NewClient(opts...),
		model:      model,
		dimensions: dimensions,
	}
}

// Embed generates embeddings for the given text inputs in a single batch.
func (c *OpenAIEmbeddingClient) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	// Build the input union: for a single string use OfString, otherwise OfArrayOfStrings
	var input openai.EmbeddingNewParamsInputUnion
	if len(inputs) == 1 {
		input = openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(inputs[0]),
		}
	} else {
		input = openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: inputs,
		}
	}

	params := openai.EmbeddingNewParams{
		Model:      openai.EmbeddingModel(c.model),
		Input:      input,
		Dimensions: openai.Int(int64(c.dimensions)),
	}

	resp, err := c.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}
	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs",
			ErrEmbeddingUnavailable, len(resp.Data), len(inputs))
	}

	results := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		results[i] = vec
	}

	return results, nil
}

// Model returns the embedding model identifier.
func (c *OpenAIEmbeddingClient) Model() string {
	return c.model
}

// Dimensions returns the configured embedding dimension.
func (c *OpenAIEmbeddingClient) Dimensions() int {
	return c.dimensions
}
