package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/pkg/utils"
)

// ONNXEmbedder runs a sentence-embedding model exported with a pooled "output" tensor.
type ONNXEmbedder struct {
	session    *BERTSession
	tokenizer  Tokenizer
	dimensions int
}

// NewONNXEmbedder loads the model at modelPath. Requires CGO and the onnxruntime shared library.
func NewONNXEmbedder(modelPath string, dimensions, maxTokens int) (*ONNXEmbedder, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	session, err := NewBERTSession(modelPath, maxTokens, "output", dimensions)
	if err != nil {
		return nil, err
	}
	return &ONNXEmbedder{
		session:    session,
		tokenizer:  &SimpleTokenizer{},
		dimensions: dimensions,
	}, nil
}

// Embed returns the L2-normalized embedding for text.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids, mask, types := e.tokenizer.Tokenize(text, e.session.MaxTokens())
	out, err := e.session.Run(ids, mask, types)
	if err != nil {
		return nil, err
	}
	if len(out) < e.dimensions {
		return nil, fmt.Errorf("model output has %d values, expected %d", len(out), e.dimensions)
	}
	embedding := out[:e.dimensions]
	utils.NormalizeL2(embedding)
	return embedding, nil
}

// EmbedBatch calls Embed for each text; the session runs one sequence at a time.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close releases the ONNX session.
func (e *ONNXEmbedder) Close() error {
	return e.session.Close()
}
