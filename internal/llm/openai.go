package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/kotae/internal/config"
)

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// OpenAI calls an OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	timeout     time.Duration
	maxRetries  int
	limiter     *rate.Limiter
	http        HTTPDoer
	logger      *zap.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenAI creates a client. Requests are rate limited client-side.
func NewOpenAI(cfg config.LLMConfig, apiKey string, opts ...Option) *OpenAI {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	c := &OpenAI{
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		maxRetries:  cfg.MaxRetries,
		limiter:     rate.NewLimiter(limit, burst),
		http:        &http.Client{},
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns "openai".
func (c *OpenAI) Name() string { return ProviderOpenAI }

// Generate sends one chat completion, retrying 429, 5xx and transport errors with exponential backoff.
func (c *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	if c.timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}
	}

	body := chatRequest{Model: c.model, Temperature: c.temperature}
	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.Prompt})
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return "", wrapErr(ctx, ctx.Err())
			case <-time.After(backoff):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return "", wrapErr(ctx, err)
		}

		text, retry, err := c.do(ctx, payload)
		if err == nil {
			c.logger.Debug("Generation completed",
				zap.String("model", c.model),
				zap.Int("attempts", attempt+1),
				zap.Duration("elapsed", time.Since(start)),
				zap.Int("response_len", len(text)))
			return text, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
		c.logger.Warn("Generation attempt failed, retrying", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return "", wrapErr(ctx, lastErr)
}

func (c *OpenAI) do(ctx context.Context, payload []byte) (text string, retry bool, err error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", true, fmt.Errorf("API request failed with status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", false, fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != nil {
		return "", false, fmt.Errorf("API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", false, fmt.Errorf("no completion returned")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), false, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
