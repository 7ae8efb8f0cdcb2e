package models

import "strings"

// Response types.
const (
	TypeRAGAnswer = "rag_answer"
	TypeCommand   = "command"
)

// QuestionRequest is the body accepted by every question endpoint.
type QuestionRequest struct {
	Question string `json:"question"`
}

// Validate trims the question and rejects an empty one.
func (r *QuestionRequest) Validate() error {
	r.Question = strings.TrimSpace(r.Question)
	if r.Question == "" {
		return ErrEmptyQuestion
	}
	return nil
}

// Source is a cited parent document in a response.
type Source struct {
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
	Preview string  `json:"preview"`
}

// GuardInfo is the guardrail summary returned to callers.
type GuardInfo struct {
	Reason   string   `json:"reason"`
	TopScore *float64 `json:"top_score,omitempty"`
	GoodHits *int     `json:"good_hits,omitempty"`
	Detail   string   `json:"detail,omitempty"`
}

// AnswerResponse is the "answer a question" result.
type AnswerResponse struct {
	Type       string            `json:"type"`
	Question   string            `json:"question"`
	Answer     string            `json:"answer"`
	Sources    []Source          `json:"sources"`
	Guard      GuardInfo         `json:"guard"`
	Confidence *ConfidenceResult `json:"confidence,omitempty"`
	Degraded   bool              `json:"degraded,omitempty"`
	Intent     *Intent           `json:"intent,omitempty"`
}

// CommandResponse is the "propose a command" result.
type CommandResponse struct {
	Type       string            `json:"type"`
	Speech     string            `json:"speech"`
	Actions    []CommandAction   `json:"actions"`
	Confidence *ConfidenceResult `json:"confidence,omitempty"`
	Sources    []Source          `json:"sources,omitempty"`
	Guard      GuardInfo         `json:"guard"`
	Rejected   []RejectedAction  `json:"rejected,omitempty"`
	Raw        string            `json:"raw,omitempty"`
	Degraded   bool              `json:"degraded,omitempty"`
	Intent     *Intent           `json:"intent,omitempty"`
}

// AskResponse holds whichever response the intent router selected. Exactly one of
// Answer and Command is set.
type AskResponse struct {
	Intent  Intent
	Answer  *AnswerResponse
	Command *CommandResponse
}

// Body returns the selected response for serialization.
func (r *AskResponse) Body() interface{} {
	if r.Command != nil {
		return r.Command
	}
	return r.Answer
}
