// Package keyword provides a full-text index over child chunks, filterable by domain.
// It backs the keyword-bias pass of retrieval.
package keyword

import (
	"context"

	"github.com/hyperjump/kotae/internal/models"
)

// ChunkIndex defines keyword indexing and domain-scoped search over chunks.
type ChunkIndex interface {
	Index(ctx context.Context, chunks []*models.ChildChunk) error
	// Search matches query against chunk text. A non-empty domain restricts hits to that domain.
	Search(ctx context.Context, query, domain string, limit int) ([]*Hit, error)
	Delete(ctx context.Context, ids []string) error
	DocCount() (uint64, error)
	Close() error
}

// Hit is a single keyword search hit.
type Hit struct {
	ID       string
	ParentID string
	Domain   string
	Score    float64
}
