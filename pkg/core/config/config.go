// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the main configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	BlobStore  BlobStoreConfig  `yaml:"blob_store"`
	Registry   RegistryConfig   `yaml:"registry"`
	Sync       SyncConfig       `yaml:"sync"`
	ChatStore  ChatStoreConfig  `yaml:"chat_store"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host    string        `yaml:"host"`
	Port    int           `yaml:"port"`
	Timeout time.Duration `yaml:"timeout"`
}

// EmbeddingConfig contains embedding provider configuration
type EmbeddingConfig struct {
	Endpoint   string `yaml:"endpoint"`   // e.g. "https://api.openai.com/v1"
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`      // e.g. "text-embedding-3-small"
	Dimensions int    `yaml:"dimensions"` // default 1536
}

// GenerationConfig contains generation provider configuration
type GenerationConfig struct {
	Endpoint  string `yaml:"endpoint"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"` // e.g. "gpt-4o-mini"
	MaxTokens int    `yaml:"max_tokens"`
}

// ChunkingConfig controls how documents are split before embedding
type ChunkingConfig struct {
	Size    int `yaml:"size"`    // characters per chunk, default 1000
	Overlap int `yaml:"overlap"` // characters shared between chunks, default 200
}

// BlobStoreConfig contains blob store backend configuration
type BlobStoreConfig struct {
	Type       string `yaml:"type"` // "memory" (default), "filesystem" or "s3"
	BaseDir    string `yaml:"base_dir"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Region   string `yaml:"s3_region"`
	S3Prefix   string `yaml:"s3_prefix"`
	S3Endpoint string `yaml:"s3_endpoint"` // custom endpoint for MinIO compatibility
}

// RegistryConfig contains document registry backend configuration
type RegistryConfig struct {
	Type       string `yaml:"type"` // "memory" (default), "postgres" or "gateway"
	DSN        string `yaml:"dsn"`
	GatewayURL string `yaml:"gateway_url"`
	APIKey     string `yaml:"api_key"`
	Owner      string `yaml:"owner"`
}

// SyncConfig controls the background cache synchronization
type SyncConfig struct {
	Interval     time.Duration `yaml:"interval"`      // default 30s
	SnapshotPath string        `yaml:"snapshot_path"` // default "data/index.json"
}

// ChatStoreConfig contains chat thread store configuration
type ChatStoreConfig struct {
	Type string `yaml:"type"` // "memory" (default) or "sqlite"
	Path string `yaml:"path"` // sqlite database path
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	return &cfg, nil
}

// Default returns default configuration
func Default() *Config {
	cfg := &Config{}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg
}

// applyEnvOverrides lets environment variables override file config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("EMBEDDING_ENDPOINT"); v != "" {
		cfg.Embedding.Endpoint = v
	}
	if v := os.Getenv("EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}

	if v := os.Getenv("OPENAI_API_ENDPOINT"); v != "" {
		cfg.Generation.Endpoint = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Generation.APIKey = v
	}
	if v := os.Getenv("GENERATION_MODEL"); v != "" {
		cfg.Generation.Model = v
	}

	if v := os.Getenv("REGISTRY_GATEWAY_URL"); v != "" {
		cfg.Registry.GatewayURL = v
		cfg.Registry.Type = "gateway"
	}
	if v := os.Getenv("REGISTRY_DSN"); v != "" {
		cfg.Registry.DSN = v
		cfg.Registry.Type = "postgres"
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 60 * time.Second
	}

	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1536
	}

	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "gpt-4o-mini"
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 4096
	}

	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = 1000
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 200
	}

	if cfg.BlobStore.Type == "" {
		cfg.BlobStore.Type = "memory"
	}
	if cfg.Registry.Type == "" {
		cfg.Registry.Type = "memory"
	}
	if cfg.ChatStore.Type == "" {
		cfg.ChatStore.Type = "memory"
	}

	if cfg.Sync.Interval == 0 {
		cfg.Sync.Interval = 30 * time.Second
	}
	if cfg.Sync.SnapshotPath == "" {
		cfg.Sync.SnapshotPath = "data/index.json"
	}
}

// BlobStoreParams converts the blob store section to provider params.
func (c *Config) BlobStoreParams() map[string]string {
	return map[string]string{
		"base_dir": c.BlobStore.BaseDir,
		"bucket":   c.BlobStore.S3Bucket,
		"region":   c.BlobStore.S3Region,
		"prefix":   c.BlobStore.S3Prefix,
		"endpoint": c.BlobStore.S3Endpoint,
	}
}

// RegistryParams converts the registry section to provider params.
func (c *Config) RegistryParams() map[string]string {
	return map[string]string{
		"dsn":     c.Registry.DSN,
		"url":     c.Registry.GatewayURL,
		"api_key": c.Registry.APIKey,
		"owner":   c.Registry.Owner,
	}
}

// ChatStoreParams converts the chat store section to provider params.
func (c *Config) ChatStoreParams() map[string]string {
	return map[string]string{
		"path": c.ChatStore.Path,
	}
}
