package rerank

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/embedding"
)

// CrossEncoder runs an ms-marco style cross-encoder exported with a single "logits" output.
type CrossEncoder struct {
	session   *embedding.BERTSession
	tokenizer embedding.Tokenizer
}

// NewCrossEncoder loads the model at modelPath. Requires CGO and the onnxruntime shared library.
func NewCrossEncoder(modelPath string, maxTokens int) (*CrossEncoder, error) {
	if maxTokens <= 0 {
		maxTokens = 512
	}
	session, err := embedding.NewBERTSession(modelPath, maxTokens, "logits", 1)
	if err != nil {
		return nil, fmt.Errorf("failed to load cross-encoder: %w", err)
	}
	return &CrossEncoder{session: session, tokenizer: &embedding.SimpleTokenizer{}}, nil
}

// Score runs one inference per passage and stops early when ctx is done.
func (c *CrossEncoder) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	scores := make([]float64, len(passages))
	for i, p := range passages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ids, mask, types := c.tokenizer.TokenizePair(query, p, c.session.MaxTokens())
		out, err := c.session.Run(ids, mask, types)
		if err != nil {
			return nil, err
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("cross-encoder returned no logits")
		}
		scores[i] = float64(out[0])
	}
	return scores, nil
}

// Name returns "onnx".
func (c *CrossEncoder) Name() string { return ProviderONNX }

// Close releases the ONNX session.
func (c *CrossEncoder) Close() error {
	return c.session.Close()
}
