package models

// GuardState is the binary outcome of the guardrail.
type GuardState string

const (
	GuardPass    GuardState = "pass"
	GuardBlocked GuardState = "blocked"
)

// Guard reason codes. ReasonOK accompanies a pass; the others are terminal block reasons
// or command-path outcomes.
const (
	ReasonOK                   = "ok"
	ReasonNoResults            = "no_results"
	ReasonWeakTopScore         = "weak_top_score"
	ReasonInsufficientGoodHits = "insufficient_good_hits"
	ReasonLowConfidence        = "low_confidence"
	ReasonParseFailed          = "parse_failed"
	ReasonCommandNotAllowed    = "command_not_allowed"
)

// GuardrailDecision is the pass/block decision for one request.
type GuardrailDecision struct {
	State  GuardState `json:"state"`
	Reason string     `json:"reason"`
}

// Passed reports whether the guardrail passed.
func (d GuardrailDecision) Passed() bool {
	return d.State == GuardPass
}

// ConfidenceLevel is the binned confidence.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// Rank orders levels so that low < medium < high. Unknown levels rank below low.
func (l ConfidenceLevel) Rank() int {
	switch l {
	case ConfidenceLow:
		return 1
	case ConfidenceMedium:
		return 2
	case ConfidenceHigh:
		return 3
	default:
		return 0
	}
}

// ConfidenceDetails exposes the two components of the confidence score.
type ConfidenceDetails struct {
	Base  float64 `json:"base"`
	Bonus float64 `json:"bonus"`
}

// ConfidenceResult is derived per request and never persisted.
type ConfidenceResult struct {
	Level    ConfidenceLevel   `json:"level"`
	Score    float64           `json:"score"`
	TopScore float64           `json:"top_score"`
	GoodHits int               `json:"good_hits"`
	Details  ConfidenceDetails `json:"details"`
}

// Trust bundles the guardrail decision and the confidence computed from the same parents.
type Trust struct {
	Decision   GuardrailDecision
	Confidence ConfidenceResult
}
