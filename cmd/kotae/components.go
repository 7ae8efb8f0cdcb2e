package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/command"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/contextfmt"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/guard"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/intent"
	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/parent"
	"github.com/hyperjump/kotae/internal/pipeline"
	"github.com/hyperjump/kotae/internal/registry"
	"github.com/hyperjump/kotae/internal/rerank"
	"github.com/hyperjump/kotae/internal/retrieval"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

// Components holds initialized services.
type Components struct {
	Config    *config.Config
	Storage   *storage.SQLiteStore
	Embedder  embedding.Embedder
	Vectors   *vector.MemoryIndex
	Keywords  *keyword.BleveIndex
	Reranker  rerank.Reranker
	Generator llm.Generator
	Registry  *registry.Registry
	Ingester  *ingest.Ingester
	Pipeline  *pipeline.Service

	release func()
	logger  *zap.Logger
}

// componentSet selects what initializeComponents builds beyond the stores.
type componentSet struct {
	pipeline bool
}

// Close flushes the vector index and releases every resource, then the store lock.
func (c *Components) Close() {
	if c.Ingester != nil {
		if err := c.Ingester.Flush(); err != nil {
			c.logger.Warn("Vector index save failed",
				zap.String("path", c.Config.Storage.VectorIndexPath), zap.Error(err))
		}
	}
	if c.Reranker != nil {
		_ = c.Reranker.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Keywords != nil {
		_ = c.Keywords.Close()
	}
	if c.Vectors != nil {
		_ = c.Vectors.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.release != nil {
		c.release()
	}
}

// initializeComponents takes the store lock and opens the stores, the embedder and the
// ingester. With set.pipeline it also builds the question pipeline.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, set componentSet) (_ *Components, err error) {
	c := &Components{Config: cfg, logger: logger}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	c.release, err = ingest.AcquireLock(ingest.LockPath(cfg.Storage.DatabasePath), cfg.Ingest.LockTimeout)
	if err != nil {
		if errors.Is(err, ingest.ErrLocked) {
			return nil, fmt.Errorf("%w; is `kotae serve` running? use --server or `kotae watch add`", err)
		}
		return nil, err
	}

	c.Storage, err = storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Embedder, err = embedding.New(ctx, cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	c.Vectors, err = vector.NewMemoryIndex(c.Embedder.Dimensions())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	if err = c.Vectors.Load(cfg.Storage.VectorIndexPath); err != nil {
		return nil, fmt.Errorf("failed to load vector index: %w", err)
	}
	c.Keywords, err = keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	if chunks, countErr := c.Storage.CountChunks(ctx); countErr == nil && chunks > 0 && c.Vectors.Size() == 0 {
		logger.Warn("Vector index is empty but the store has chunks; re-ingest to rebuild it",
			zap.Int64("chunks", chunks), zap.String("path", cfg.Storage.VectorIndexPath))
	}
	c.Ingester = ingest.New(c.Storage, c.Embedder, c.Vectors, c.Keywords, nil, cfg.Ingest,
		ingest.WithLogger(logger),
		ingest.WithVectorPath(cfg.Storage.VectorIndexPath))

	if !set.pipeline {
		return c, nil
	}

	c.Registry, err = registry.Load(cfg.Command.RegistryPath)
	if err != nil {
		return nil, err
	}
	c.Reranker, err = rerank.New(cfg.Rerank, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize reranker: %w", err)
	}
	c.Generator, err = llm.New(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize llm: %w", err)
	}
	engine, err := retrieval.NewEngine(c.Storage, c.Embedder, c.Vectors, c.Keywords, c.Reranker,
		cfg.Retrieval, cfg.Rerank, retrieval.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	gate, err := command.New(c.Generator, c.Registry, cfg.Command, cfg.Messages, command.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	router, err := intent.New(c.Generator, cfg.Intent, intent.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	c.Pipeline = pipeline.New(pipeline.Deps{
		Retriever: engine,
		Parents:   parent.NewReconstructor(c.Storage, logger),
		Guard:     guard.New(cfg.Guard),
		Formatter: contextfmt.New(cfg.Context),
		Generator: c.Generator,
		Gate:      gate,
		Router:    router,
	}, cfg, pipeline.WithLogger(logger))

	logger.Info("Components ready",
		zap.String("embedder", cfg.Embedding.Provider),
		zap.String("reranker", c.Reranker.Name()),
		zap.String("llm", c.Generator.Name()),
		zap.Int("commands", c.Registry.Len()),
		zap.Int("vectors", c.Vectors.Size()))
	return c, nil
}
