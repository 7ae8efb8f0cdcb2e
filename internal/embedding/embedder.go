// Package embedding turns text into unit-length vectors for the chunk index.
package embedding

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Provider names accepted in configuration.
const (
	ProviderONNX   = "onnx"
	ProviderGemini = "gemini"
	ProviderHash   = "hash"
)

// New builds the configured embedder wrapped in an LRU cache.
func New(ctx context.Context, cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case ProviderONNX, "":
		e, err = NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
	case ProviderGemini:
		key := os.Getenv(cfg.APIKeyEnv)
		e, err = NewGenAIEmbedder(ctx, key, cfg.GeminiModel, cfg.Dimensions)
	case ProviderHash:
		e = NewHashEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: onnx, gemini, hash)", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Info("Embedder ready",
			zap.String("provider", cfg.Provider),
			zap.Int("dimensions", e.Dimensions()),
			zap.Int("cache_size", cfg.CacheSize))
	}
	return WithCache(e, cfg.CacheSize), nil
}
