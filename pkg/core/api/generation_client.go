// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// ErrGenerationUnavailable is returned when the generation provider cannot
// be reached or returns no usable completion.
var ErrGenerationUnavailable = errors.New("generation provider unavailable")

// GenerationClient produces a grounded answer from an assembled context
// block and a question.
type GenerationClient interface {
	Generate(ctx context.Context, systemInstruction, contextBlock, question string) (string, error)
}

// OpenAIGenerationClient implements GenerationClient using the official
// OpenAI Go SDK. Works against OpenAI, Ollama, vLLM, and other
// OpenAI-compatible backends.
type OpenAIGenerationClient struct {
	client    openai.Client
	model     string
	maxTokens int
}

// NewOpenAIGenerationClient creates a generation client. The baseURL allows
// connecting to OpenAI-compatible local backends.
func NewOpenAIGenerationClient(baseURL, apiKey, model string, maxTokens int) *OpenAIGenerationClient {
	opts := []option.RequestOption{}

	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	} else {
		// Dummy key for local backends that don't require authentication.
		opts = append(opts, option.WithAPIKey("dummy"))
	}

	return &OpenAIGenerationClient{
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}
}

// Generate runs one chat completion: system instruction, then the context
// block and question as the user turn.
func (c *OpenAIGenerationClient) Generate(ctx context.Context, systemInstruction, contextBlock, question string) (string, error) {
	userContent := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextBlock, question)

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemInstruction),
			openai.UserMessage(userContent),
		},
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.maxTokens))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", ErrGenerationUnavailable)
	}

	return completion.Choices[0].Message.Content, nil
}
