// Package storage defines the durable store for parent documents and their child chunks.
package storage

import (
	"context"

	"github.com/hyperjump/kotae/internal/models"
)

// Store persists parent documents keyed by id together with the child chunks derived from them.
// Reads are safe for concurrent use by many in-flight requests.
type Store interface {
	// PutParent writes a parent and its chunks in one transaction, replacing an existing parent with the same id.
	PutParent(ctx context.Context, doc *models.ParentDocument, chunks []*models.ChildChunk) error
	// GetParent returns a parent by id, or an error wrapping models.ErrParentNotFound.
	GetParent(ctx context.Context, id string) (*models.ParentDocument, error)
	// MGet returns the parents found for ids. Missing ids are absent from the map.
	MGet(ctx context.Context, ids []string) (map[string]*models.ParentDocument, error)

	GetChunks(ctx context.Context, ids []string) (map[string]*models.ChildChunk, error)
	ChunksByParent(ctx context.Context, parentID string) ([]*models.ChildChunk, error)

	// DeleteBySource removes every parent with the given source and returns the ids of the removed chunks.
	DeleteBySource(ctx context.Context, source string) ([]string, error)
	ListSources(ctx context.Context) ([]string, error)

	CountParents(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
