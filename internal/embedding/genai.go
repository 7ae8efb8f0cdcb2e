package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/hyperjump/kotae/pkg/utils"
)

// GenAIEmbedder generates embeddings with the Gemini API.
type GenAIEmbedder struct {
	client     *genai.Client
	model      string
	dimensions int
}

// NewGenAIEmbedder creates a Gemini embedder producing vectors of the given width.
func NewGenAIEmbedder(ctx context.Context, apiKey, model string, dimensions int) (*GenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}
	if dimensions <= 0 {
		dimensions = 768
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAIEmbedder{client: client, model: model, dimensions: dimensions}, nil
}

// Embed generates an embedding for a single text.
func (e *GenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch sends all texts in one request. Reduced-width vectors are renormalized.
func (e *GenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		TaskType:             "SEMANTIC_SIMILARITY",
		OutputDimensionality: genai.Ptr(int32(e.dimensions)),
	})
	if err != nil {
		return nil, fmt.Errorf("GenAI embed failed: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("GenAI returned %d embeddings for %d texts", len(result.Embeddings), len(texts))
	}

	embeddings := make([][]float32, len(texts))
	for i, emb := range result.Embeddings {
		if len(emb.Values) != e.dimensions {
			return nil, fmt.Errorf("GenAI embedding has %d dimensions, expected %d", len(emb.Values), e.dimensions)
		}
		utils.NormalizeL2(emb.Values)
		embeddings[i] = emb.Values
	}
	return embeddings, nil
}

// Dimensions returns the configured output width.
func (e *GenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the client holds no resources that need releasing.
func (e *GenAIEmbedder) Close() error {
	return nil
}
