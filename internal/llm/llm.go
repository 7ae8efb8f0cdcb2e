// Package llm provides the generative capability used for answers, intent classification
// and command proposals.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
)

// Request is one generation call.
type Request struct {
	System string
	Prompt string
	// JSON asks the provider for a single JSON object as output.
	JSON bool
}

// Generator produces text for a prompt. Errors wrap models.ErrGenerationTimeout when the
// deadline was exceeded and models.ErrGenerationUnavailable otherwise.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// Provider names accepted in configuration.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// New builds the configured generator. A missing API key is not fatal: the returned generator
// fails every call so retrieval-only use keeps working.
func New(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (Generator, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" && cfg.Provider != "" {
		if logger != nil {
			logger.Warn("LLM API key not set; generation disabled",
				zap.String("provider", cfg.Provider), zap.String("env", cfg.APIKeyEnv))
		}
		return Unavailable{Reason: fmt.Sprintf("%s is not set", cfg.APIKeyEnv)}, nil
	}
	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAI(cfg, key, WithLogger(logger)), nil
	case ProviderGemini:
		return NewGemini(ctx, cfg, key)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s (supported: openai, gemini)", cfg.Provider)
	}
}

// wrapErr classifies a provider error as a timeout or an unavailability.
func wrapErr(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", models.ErrGenerationTimeout, err)
	}
	return fmt.Errorf("%w: %w", models.ErrGenerationUnavailable, err)
}

// Unavailable fails every call.
type Unavailable struct {
	Reason string
}

// Generate returns models.ErrGenerationUnavailable.
func (u Unavailable) Generate(context.Context, Request) (string, error) {
	return "", fmt.Errorf("%w: %s", models.ErrGenerationUnavailable, u.Reason)
}

// Name returns "unavailable".
func (u Unavailable) Name() string { return "unavailable" }
