// Package parent collapses ranked child chunks into unique parent documents and loads
// their full text from the durable store.
package parent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
)

// Dedup walks candidates in rank order and returns at most topK unique parents.
// A parent keeps the rank of its first chunk; its BestDistance is the minimum raw distance
// over every chunk seen for it before the walk stops.
func Dedup(candidates []*models.RetrievalCandidate, topK int) []*models.ScoredParent {
	if topK <= 0 {
		return nil
	}
	var out []*models.ScoredParent
	byID := make(map[string]*models.ScoredParent)
	for _, c := range candidates {
		if c == nil || c.Chunk == nil {
			continue
		}
		id := c.Chunk.ParentID
		if p, ok := byID[id]; ok {
			if c.RawDistance < p.BestDistance {
				p.BestDistance = c.RawDistance
			}
			p.Chunks = append(p.Chunks, c.Chunk)
			continue
		}
		if len(out) >= topK {
			break
		}
		p := &models.ScoredParent{DocID: id, BestDistance: c.RawDistance, Chunks: []*models.ChildChunk{c.Chunk}}
		byID[id] = p
		out = append(out, p)
	}
	return out
}

// Reconstructor attaches stored parent documents to deduplicated parents.
type Reconstructor struct {
	store  storage.Store
	logger *zap.Logger
}

// NewReconstructor creates a Reconstructor over store.
func NewReconstructor(store storage.Store, logger *zap.Logger) *Reconstructor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconstructor{store: store, logger: logger}
}

// Reconstruct deduplicates candidates and fetches every surviving parent in one batch.
// Parents missing from the store are excluded and logged; nothing is substituted in their
// place. A store failure fails the whole call.
func (r *Reconstructor) Reconstruct(ctx context.Context, candidates []*models.RetrievalCandidate, topK int) ([]*models.ScoredParent, error) {
	parents := Dedup(candidates, topK)
	if len(parents) == 0 {
		return nil, nil
	}
	ids := make([]string, len(parents))
	for i, p := range parents {
		ids[i] = p.DocID
	}
	docs, err := r.store.MGet(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: parent lookup failed: %w", models.ErrRetrievalUnavailable, err)
	}
	out := parents[:0]
	for _, p := range parents {
		doc, ok := docs[p.DocID]
		if !ok {
			r.logger.Error("Parent document missing from store",
				zap.String("doc_id", p.DocID),
				zap.Int("chunks", len(p.Chunks)),
				zap.Error(models.ErrParentNotFound))
			continue
		}
		p.Document = doc
		out = append(out, p)
	}
	return out, nil
}
