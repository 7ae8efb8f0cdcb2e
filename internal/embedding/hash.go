package embedding

import (
	"context"
	"hash/fnv"

	"github.com/hyperjump/kotae/pkg/utils"
)

// HashEmbedder is a deterministic bag-of-words embedder using feature hashing over words
// and rune bigrams. Texts sharing vocabulary land close together, which is enough for
// tests and offline runs without a model.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder returns a hashing embedder; non-positive dimensions default to 384.
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashEmbedder{dimensions: dimensions}
}

// Embed hashes each word and each rune bigram of longer words into a signed bucket.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimensions)
	for _, w := range Words(text) {
		e.add(vec, w, 1)
		runes := []rune(w)
		for i := 0; i+1 < len(runes); i++ {
			e.add(vec, string(runes[i:i+2]), 0.5)
		}
	}
	utils.NormalizeL2(vec)
	return vec, nil
}

func (e *HashEmbedder) add(vec []float32, feature string, weight float32) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum32()
	if sum&1 == 1 {
		weight = -weight
	}
	vec[int(sum>>1)%e.dimensions] += weight
}

// EmbedBatch calls Embed for each text.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
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
func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *HashEmbedder) Close() error {
	return nil
}
