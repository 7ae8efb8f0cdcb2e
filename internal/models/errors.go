package models

import "errors"

// Request-level errors. Guardrail blocks, missing parents and invalid command
// proposals are normal outcomes and never surface as one of these.
var (
	// ErrEmptyQuestion is returned when a request carries no question text.
	ErrEmptyQuestion = errors.New("question cannot be empty")

	// ErrRetrievalUnavailable is returned when the vector index or a store cannot be read.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrRerankUnavailable is returned when re-ranking fails and the policy is to fail.
	ErrRerankUnavailable = errors.New("reranker unavailable")

	// ErrParentNotFound is returned when a parent document id has no stored record.
	ErrParentNotFound = errors.New("parent document not found")

	// ErrGenerationUnavailable is returned when the generative capability fails.
	ErrGenerationUnavailable = errors.New("generation unavailable")

	// ErrGenerationTimeout is returned when the generative capability exceeds its deadline.
	ErrGenerationTimeout = errors.New("generation timed out")
)
