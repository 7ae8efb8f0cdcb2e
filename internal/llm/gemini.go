package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/hyperjump/kotae/internal/config"
)

// Gemini generates text with the Gemini API.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
	timeout     time.Duration
}

// NewGemini creates a Gemini generator.
func NewGemini(ctx context.Context, cfg config.LLMConfig, apiKey string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Gemini{
		client:      client,
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		timeout:     cfg.Timeout,
	}, nil
}

// Name returns "gemini".
func (g *Gemini) Name() string { return ProviderGemini }

// Generate sends a single-turn request.
func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	if g.timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
	}
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", wrapErr(ctx, err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", wrapErr(ctx, fmt.Errorf("empty response from %s", g.model))
	}
	return text, nil
}
