package models

// RetrievalCandidate is one child chunk after re-ranking. RerankScore orders candidates;
// RawDistance is the untouched similarity distance used for trust decisions.
type RetrievalCandidate struct {
	Chunk       *ChildChunk `json:"chunk"`
	RerankScore float64     `json:"rerank_score"`
	RawDistance float64     `json:"raw_distance"`
	// Biased is true when the chunk entered the pool through a keyword-bias pattern.
	Biased bool `json:"biased,omitempty"`
}

// ScoredParent is a unique parent document surviving deduplication for a single request.
// BestDistance is the minimum RawDistance over Chunks.
type ScoredParent struct {
	DocID        string          `json:"doc_id"`
	BestDistance float64         `json:"best_distance"`
	Chunks       []*ChildChunk   `json:"contributing_chunks"`
	Document     *ParentDocument `json:"-"`
}

// Source returns the parent's source, or "unknown" before reconstruction.
func (p *ScoredParent) Source() string {
	if p.Document == nil || p.Document.Source == "" {
		return "unknown"
	}
	return p.Document.Source
}

// Text returns the parent's full text, or an empty string before reconstruction.
func (p *ScoredParent) Text() string {
	if p.Document == nil {
		return ""
	}
	return p.Document.Content
}
