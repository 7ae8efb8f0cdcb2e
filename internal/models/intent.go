package models

// IntentLabel is the closed label set of the intent router.
type IntentLabel string

const (
	IntentExplain IntentLabel = "explain"
	IntentCommand IntentLabel = "command"
)

// Valid reports whether l is one of the two labels.
func (l IntentLabel) Valid() bool {
	return l == IntentExplain || l == IntentCommand
}

// IntentSource records which step produced the label.
type IntentSource string

const (
	IntentSourceRule  IntentSource = "rule"
	IntentSourceModel IntentSource = "model"
)

// Intent is the routing decision for a question.
type Intent struct {
	Label  IntentLabel  `json:"label"`
	Source IntentSource `json:"source"`
	Reason string       `json:"reason,omitempty"`
}
