// Package models defines core data structures for documents, retrieval, trust decisions and responses.
package models

import "time"

// ParentDocument is a full source document reconstructed as generative context.
// It is addressed by the child chunks that matched it.
type ParentDocument struct {
	ID        string                 `json:"doc_id"`
	Source    string                 `json:"source"`
	Kind      string                 `json:"kind"`
	Domain    string                 `json:"domain"`
	Content   string                 `json:"page_content"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// ChildChunk is a small text segment indexed for similarity search.
// RawDistance is only populated on chunks returned from a search.
type ChildChunk struct {
	ID          string    `json:"id"`
	ParentID    string    `json:"parent_doc_id"`
	Text        string    `json:"text"`
	Domain      string    `json:"domain"`
	ChunkIndex  int       `json:"chunk_index"`
	RawDistance float64   `json:"raw_distance"`
	Embedding   []float32 `json:"-"`
}

// ParentInput is the input for ingesting one parent document with its text already extracted.
type ParentInput struct {
	ID       string                 `json:"id,omitempty"`
	Source   string                 `json:"source"`
	Kind     string                 `json:"kind,omitempty"`
	Domain   string                 `json:"domain,omitempty"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}
