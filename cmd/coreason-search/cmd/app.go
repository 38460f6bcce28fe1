package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/CoReason-AI/coreason-search/internal/config"
	"github.com/CoReason-AI/coreason-search/internal/embed"
	"github.com/CoReason-AI/coreason-search/internal/graph"
	"github.com/CoReason-AI/coreason-search/internal/logging"
	"github.com/CoReason-AI/coreason-search/internal/retriever"
	"github.com/CoReason-AI/coreason-search/internal/search"
	"github.com/CoReason-AI/coreason-search/internal/store"
)

// app holds the wired pipeline and its backends for one CLI invocation.
type app struct {
	cfg      *config.Settings
	logger   *slog.Logger
	embedder embed.Embedder
	docs     *store.DocumentStore
	fts      store.FTSBackend
	index    *store.VectorIndex
	graph    *graph.MemoryClient
	engine   *search.Engine
}

// vectorIndexPath is where the HNSW index persists next to the database.
func vectorIndexPath(databaseURI string) string {
	if databaseURI == "" {
		return ""
	}
	return databaseURI + ".hnsw"
}

// buildApp loads configuration and wires every backend. The vector index
// is loaded from disk when a snapshot exists; otherwise dense retrieval
// starts empty until a corpus is loaded.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if !debugMode {
		logging.SetLevel(cfg.Logging.Level)
	}
	logger := slog.Default()

	embedder, err := embed.New(ctx, cfg.Embedding, logger)
	if err != nil {
		return nil, err
	}

	docs, err := store.OpenDocumentStore(cfg.DatabaseURI)
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}

	fts, err := store.NewFTSBackend(cfg.Search.FTSBackend, docs, cfg.DatabaseURI)
	if err != nil {
		_ = docs.Close()
		_ = embedder.Close()
		return nil, err
	}

	index, err := store.NewVectorIndex(embedder.Dimensions())
	if err != nil {
		_ = fts.Close()
		_ = docs.Close()
		_ = embedder.Close()
		return nil, err
	}
	if path := vectorIndexPath(cfg.DatabaseURI); path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := index.Load(path); err != nil {
				logger.Warn("vector_index_load_failed",
					slog.String("path", path),
					slog.String("error", err.Error()))
			}
		}
	}

	gclient := graph.NewMemoryClient()
	if cfg.Env == "development" {
		graph.SeedDemo(gclient)
	}

	engine, err := search.New(
		retriever.NewDense(embedder, index, docs, logger),
		retriever.NewSparse(fts, cfg.Search.SystematicBatchSize, logger),
		retriever.NewGraph(gclient, logger),
		cfg, logger)
	if err != nil {
		_ = index.Close()
		_ = fts.Close()
		_ = docs.Close()
		_ = embedder.Close()
		return nil, err
	}

	logger.Info("pipeline_ready",
		slog.String("database_uri", cfg.DatabaseURI),
		slog.String("fts_backend", cfg.Search.FTSBackend),
		slog.String("embedder", embedder.Provider()),
		slog.Int("dimensions", embedder.Dimensions()))

	return &app{
		cfg:      cfg,
		logger:   logger,
		embedder: embedder,
		docs:     docs,
		fts:      fts,
		index:    index,
		graph:    gclient,
		engine:   engine,
	}, nil
}

// Close releases backends in reverse construction order.
func (a *app) Close() error {
	var firstErr error
	for _, close := range []func() error{
		a.index.Close,
		a.fts.Close,
		a.docs.Close,
		a.embedder.Close,
	} {
		if err := close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return fmt.Errorf("close backends: %w", firstErr)
	}
	return nil
}
