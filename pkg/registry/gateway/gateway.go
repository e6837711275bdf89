// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

// Package gateway implements the registry contract against the chain-facing
// registry gateway: a thin HTTP service that fronts the on-chain registry
// contract. The core never talks to the chain directly; this client is the
// narrow read/write interface it consumes.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vaultrag/vaultrag/pkg/registry"
)

func init() {
	registry.Providers.Register("gateway", func(_ context.Context, params map[string]string) (registry.Registry, error) {
		return New(params["url"], params["api_key"]), nil
	})
}

// compile-time check
var _ registry.Registry = (*Client)(nil)

// Client talks JSON over HTTP to the registry gateway.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a gateway client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// writeResponse is the gateway's reply to mutating calls.
type writeResponse struct {
	Version int64 `json:"version"`
}

// Stats returns the registry-wide summary.
func (c *Client) Stats(ctx context.Context) (registry.Stats, error) {
	var stats registry.Stats
	if err := c.do(ctx, http.MethodGet, "/registry/stats", nil, &stats); err != nil {
		return registry.Stats{}, err
	}
	return stats, nil
}

// GetDocument returns the record for a key.
func (c *Client) GetDocument(ctx context.Context, key string) (*registry.Record, error) {
	rec := &registry.Record{}
	err := c.do(ctx, http.MethodGet, "/registry/documents/"+url.PathEscape(key), nil, rec)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListDocuments returns all current records.
func (c *Client) ListDocuments(ctx context.Context) ([]*registry.Record, error) {
	var out []*registry.Record
	if err := c.do(ctx, http.MethodGet, "/registry/documents", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddDocument writes a record through the gateway and returns the new
// global version.
func (c *Client) AddDocument(ctx context.Context, rec *registry.Record) (int64, error) {
	var resp writeResponse
	if err := c.do(ctx, http.MethodPost, "/registry/documents", rec, &resp); err != nil {
		return 0, err
	}
	return resp.Version, nil
}

// RemoveDocument deletes a record through the gateway and returns the new
// global version.
func (c *Client) RemoveDocument(ctx context.Context, key string) (int64, error) {
	var resp writeResponse
	err := c.do(ctx, http.MethodDelete, "/registry/documents/"+url.PathEscape(key), nil, &resp)
	if err != nil {
		return 0, err
	}
	return resp.Version, nil
}

// Close is a no-op; the http.Client holds no per-instance resources.
func (c *Client) Close(_ context.Context) error {
	return nil
}

// do performs one JSON request/response round trip. Transport failures map
// to registry.ErrUnavailable; a 404 maps to registry.ErrDocumentNotFound.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway %s %s: %w: %v", method, path, registry.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("gateway %s %s: %w", method, path, registry.ErrDocumentNotFound)
	case resp.StatusCode >= 500:
		return fmt.Errorf("gateway %s %s: status %d: %w", method, path, resp.StatusCode, registry.ErrUnavailable)
	case resp.StatusCode >= 400:
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("gateway %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}
