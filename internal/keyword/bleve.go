package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/kotae/internal/models"
)

const (
	fieldText   = "text"
	fieldDomain = "domain"
	fieldParent = "parent_id"
)

// BleveIndex implements ChunkIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path.
// If you change the index mapping in code, remove the index directory to force a full re-index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, chunkMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

func chunkMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	// Standard analyzer without stemming: identifiers and error codes must match verbatim.
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(fieldText, text)

	domain := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt(fieldDomain, domain)

	parent := bleve.NewKeywordFieldMapping()
	parent.Index = false
	docMapping.AddFieldMappingsAt(fieldParent, parent)

	im.AddDocumentMapping("chunk", docMapping)
	im.DefaultType = "chunk"
	im.DefaultMapping = docMapping
	return im
}

// Index adds or replaces chunks in one batch.
func (b *BleveIndex) Index(ctx context.Context, chunks []*models.ChildChunk) error {
	batch := b.index.NewBatch()
	for _, c := range chunks {
		doc := map[string]interface{}{
			fieldText:   c.Text,
			fieldDomain: c.Domain,
			fieldParent: c.ParentID,
		}
		if err := batch.Index(c.ID, doc); err != nil {
			return fmt.Errorf("failed to queue chunk %s: %w", c.ID, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("Bleve batch index failed: %w", err)
	}
	return nil
}

// Search runs a match query over chunk text, optionally scoped to a domain.
func (b *BleveIndex) Search(ctx context.Context, query, domain string, limit int) ([]*Hit, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return nil, nil
	}
	mq := bleve.NewMatchQuery(query)
	mq.SetField(fieldText)
	var q blevequery.Query = mq
	if domain != "" {
		tq := bleve.NewTermQuery(domain)
		tq.SetField(fieldDomain)
		q = bleve.NewConjunctionQuery(mq, tq)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{fieldParent, fieldDomain}
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*Hit, len(results.Hits))
	for i, hit := range results.Hits {
		h := &Hit{ID: hit.ID, Score: hit.Score}
		if v, ok := hit.Fields[fieldParent].(string); ok {
			h.ParentID = v
		}
		if v, ok := hit.Fields[fieldDomain].(string); ok {
			h.Domain = v
		}
		out[i] = h
	}
	return out, nil
}

// Delete removes chunks from the index.
func (b *BleveIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	batch := b.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return b.index.Batch(batch)
}

// DocCount returns the number of indexed chunks.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
