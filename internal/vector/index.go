// Package vector provides the child-chunk vector index and similarity search.
package vector

import "context"

// Index stores chunk embeddings and answers nearest-neighbour queries by cosine distance.
type Index interface {
	// Add inserts vectors, replacing any vector already stored under the same id.
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	// Search returns up to k hits ordered by ascending distance.
	Search(ctx context.Context, query []float32, k int) ([]*Result, error)
	// Distances returns the query distance for each known id. Unknown ids are absent.
	Distances(ctx context.Context, query []float32, ids []string) (map[string]float64, error)
	Remove(ctx context.Context, ids []string) error
	Save(path string) error
	Load(path string) error
	Size() int
	Close() error
}

// Result is a single search hit. Distance is 1 - cosine similarity; lower is closer.
type Result struct {
	ID       string
	Distance float64
}
