package benchmark

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/contextfmt"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/guard"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/parent"
	"github.com/hyperjump/kotae/internal/vector"
)

func BenchmarkMemoryIndexSearch(b *testing.B) {
	idx, _ := vector.NewMemoryIndex(384)
	ctx := context.Background()
	vecs := make([][]float32, 1000)
	ids := make([]string, 1000)
	for i := 0; i < 1000; i++ {
		vecs[i] = make([]float32, 384)
		vecs[i][0] = float32(i) / 1000
		vecs[i][1] = 1
		ids[i] = fmt.Sprintf("c%d", i)
	}
	_ = idx.Add(ctx, ids, vecs)
	query := make([]float32, 384)
	query[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(ctx, query, 20)
	}
}

func BenchmarkHashEmbedder_Embed(b *testing.B) {
	e := embedding.NewHashEmbedder(384)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "benchmark query text for embedding")
	}
}

func BenchmarkSplitter(b *testing.B) {
	s := ingest.NewSplitter(600, 100)
	text := strings.Repeat("A sentence about retrieval pipelines. ", 400)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Split(text)
	}
}

func scoredParents(n int) []*models.ScoredParent {
	parents := make([]*models.ScoredParent, n)
	for i := range parents {
		id := fmt.Sprintf("P%d", i)
		parents[i] = &models.ScoredParent{
			DocID:        id,
			BestDistance: 0.1 + float64(i)*0.05,
			Document: &models.ParentDocument{
				ID:      id,
				Source:  fmt.Sprintf("notes/%d.md", i),
				Content: strings.Repeat("context line ", 120),
			},
		}
	}
	return parents
}

func BenchmarkFormatContext(b *testing.B) {
	f := contextfmt.New(config.Default().Context)
	parents := scoredParents(8)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = f.Format(parents)
	}
}

func BenchmarkDedupAndGuard(b *testing.B) {
	candidates := make([]*models.RetrievalCandidate, 100)
	for i := range candidates {
		candidates[i] = &models.RetrievalCandidate{
			Chunk:       &models.ChildChunk{ID: fmt.Sprintf("c%d", i), ParentID: fmt.Sprintf("P%d", i%12)},
			RawDistance: float64(i%17) / 20,
		}
	}
	g := guard.New(config.Default().Guard)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = g.Evaluate(parent.Dedup(candidates, 4))
	}
}
