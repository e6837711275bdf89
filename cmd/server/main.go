// Copyright VaultRAG Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpAdapter "github.com/vaultrag/vaultrag/pkg/adapters/http"
	"github.com/vaultrag/vaultrag/pkg/blobstore"
	_ "github.com/vaultrag/vaultrag/pkg/blobstore/filesystem"
	_ "github.com/vaultrag/vaultrag/pkg/blobstore/memory"
	_ "github.com/vaultrag/vaultrag/pkg/blobstore/s3"
	"github.com/vaultrag/vaultrag/pkg/chatstore"
	_ "github.com/vaultrag/vaultrag/pkg/chatstore/memory"
	_ "github.com/vaultrag/vaultrag/pkg/chatstore/sqlite"
	"github.com/vaultrag/vaultrag/pkg/core/api"
	"github.com/vaultrag/vaultrag/pkg/core/config"
	"github.com/vaultrag/vaultrag/pkg/core/engine"
	"github.com/vaultrag/vaultrag/pkg/core/services"
	"github.com/vaultrag/vaultrag/pkg/core/syncer"
	"github.com/vaultrag/vaultrag/pkg/observability/logging"
	"github.com/vaultrag/vaultrag/pkg/registry"
	_ "github.com/vaultrag/vaultrag/pkg/registry/gateway"
	_ "github.com/vaultrag/vaultrag/pkg/registry/memory"
	_ "github.com/vaultrag/vaultrag/pkg/registry/postgres"
	"github.com/vaultrag/vaultrag/pkg/vectorindex"
)

var (
	// Version is set via ldflags during build
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	port := flag.Int("port", 8080, "HTTP port to listen on")
	version := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	// Print version
	if *version {
		fmt.Printf("VaultRAG Server\nVersion: %s\nBuild Time: %s\n", Version, BuildTime)
		os.Exit(0)
	}

	// Initialize logger
	logger := logging.New(logging.Config{
		Level:  "info",
		Format: "json",
	})
	logger.Info("Starting VaultRAG Server",
		"version", Version,
		"build_time", BuildTime)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		// If config file doesn't exist, use defaults
		logger.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}

	// Override port if specified
	if *port != 8080 {
		cfg.Server.Port = *port
	}

	initCtx := context.Background()

	// Initialize blob store
	blobs, err := blobstore.Providers.New(initCtx, cfg.BlobStore.Type, cfg.BlobStoreParams())
	if err != nil {
		logger.Error("Failed to initialize blob store", "type", cfg.BlobStore.Type, "error", err)
		os.Exit(1)
	}
	defer blobs.Close(context.Background())
	logger.Info("Initialized blob store", "type", cfg.BlobStore.Type)

	// Initialize document registry
	reg, err := registry.Providers.New(initCtx, cfg.Registry.Type, cfg.RegistryParams())
	if err != nil {
		logger.Error("Failed to initialize registry", "type", cfg.Registry.Type, "error", err)
		os.Exit(1)
	}
	defer reg.Close(context.Background())
	logger.Info("Initialized registry", "type", cfg.Registry.Type)

	// Initialize chat store
	chats, err := chatstore.Providers.New(initCtx, cfg.ChatStore.Type, cfg.ChatStoreParams())
	if err != nil {
		logger.Error("Failed to initialize chat store", "type", cfg.ChatStore.Type, "error", err)
		os.Exit(1)
	}
	defer chats.Close(context.Background())
	logger.Info("Initialized chat store", "type", cfg.ChatStore.Type)

	// Initialize model provider clients
	embedder := api.NewOpenAIEmbeddingClient(
		cfg.Embedding.Endpoint,
		cfg.Embedding.APIKey,
		cfg.Embedding.Model,
		cfg.Embedding.Dimensions,
	)
	logger.Info("Initialized embedding client", "model", cfg.Embedding.Model)

	generator := api.NewOpenAIGenerationClient(
		cfg.Generation.Endpoint,
		cfg.Generation.APIKey,
		cfg.Generation.Model,
		cfg.Generation.MaxTokens,
	)
	logger.Info("Initialized generation client", "model", cfg.Generation.Model)

	// Initialize the vector index and its sync engine
	handle := vectorindex.NewHandle(vectorindex.New(cfg.Embedding.Model))
	sync := syncer.New(handle, reg, blobs, cfg.Sync.SnapshotPath, cfg.Embedding.Model, logger.Component("syncer"))
	if err := sync.Initialize(initCtx); err != nil {
		logger.Error("Failed to initialize vector index", "error", err)
		os.Exit(1)
	}
	if _, err := sync.SyncIfStale(initCtx); err != nil {
		// Startup proceeds on the loaded snapshot; the sync loop retries.
		logger.Warn("Initial sync failed, serving from snapshot", "error", err)
	}

	syncCtx, stopSync := context.WithCancel(context.Background())
	defer stopSync()
	go sync.Run(syncCtx, cfg.Sync.Interval)
	logger.Info("Started sync loop", "interval", cfg.Sync.Interval)

	// Initialize services
	ingestor := services.NewIngestor(blobs, embedder, reg, handle,
		cfg.Sync.SnapshotPath, cfg.Chunking.Size, cfg.Chunking.Overlap,
		sync, logger.Component("ingest"))
	eng := engine.New(handle, blobs, embedder, generator, logger.Component("engine"))
	chatService := services.NewChatService(chats, eng)
	logger.Info("Initialized services")

	// Initialize HTTP adapter
	handler := httpAdapter.New(ingestor, eng, chatService, sync, reg, logger.Component("http"))
	logger.Info("Initialized HTTP adapter")

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server in goroutine
	go func() {
		logger.Info("Server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	logger.Info("Shutdown signal received")

	// Stop background sync before draining connections
	stopSync()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("Server stopped gracefully")
}
