// Package rerank scores (query, passage) pairs for the second retrieval stage.
// Scores are relative within one call and carry no absolute meaning.
package rerank

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
)

// Reranker scores each passage against query; higher is more relevant.
// The returned slice has one score per passage, in input order.
type Reranker interface {
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
	Name() string
	Close() error
}

// Provider names accepted in configuration.
const (
	ProviderONNX    = "onnx"
	ProviderLexical = "lexical"
	ProviderNone    = "none"
)

// New builds the configured reranker.
func New(cfg config.RerankConfig, logger *zap.Logger) (Reranker, error) {
	var (
		r   Reranker
		err error
	)
	switch cfg.Provider {
	case ProviderONNX, "":
		r, err = NewCrossEncoder(cfg.ModelPath, cfg.MaxTokens)
	case ProviderLexical:
		r = NewLexical()
	case ProviderNone:
		r = None{}
	default:
		return nil, fmt.Errorf("unknown rerank provider: %s (supported: onnx, lexical, none)", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Info("Reranker ready", zap.String("provider", r.Name()), zap.Duration("timeout", cfg.Timeout))
	}
	return r, nil
}

// None leaves every passage with an equal score so callers fall back to similarity order.
type None struct{}

// Score returns zeros.
func (None) Score(_ context.Context, _ string, passages []string) ([]float64, error) {
	return make([]float64, len(passages)), nil
}

// Name returns "none".
func (None) Name() string { return ProviderNone }

// Close is a no-op.
func (None) Close() error { return nil }
