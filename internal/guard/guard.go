// Package guard derives the guardrail decision and confidence from the raw distances of the
// deduplicated parents. Rerank scores are never consulted: they are not comparable across
// queries, while distances are compared to absolute thresholds.
package guard

import (
	"math"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
)

// WorstScore is the top score of an empty result: the largest possible cosine distance.
const WorstScore = 2.0

// Guard evaluates trust for one request at a time. It is stateless and safe for concurrent use.
type Guard struct {
	cfg config.GuardConfig
}

// New creates a Guard with the given thresholds.
func New(cfg config.GuardConfig) *Guard {
	return &Guard{cfg: cfg}
}

// Evaluate computes the guardrail decision and confidence for parents in rank order.
func (g *Guard) Evaluate(parents []*models.ScoredParent) models.Trust {
	top, hits := g.Summarize(parents)
	return models.Trust{
		Decision:   g.Decide(top, hits, len(parents) == 0),
		Confidence: g.Confidence(top, hits, len(parents) == 0),
	}
}

// Summarize returns the first parent's best distance (WorstScore when empty) and the number
// of parents within the good-hit threshold.
func (g *Guard) Summarize(parents []*models.ScoredParent) (topScore float64, goodHits int) {
	if len(parents) == 0 {
		return WorstScore, 0
	}
	for _, p := range parents {
		if p.BestDistance <= g.cfg.GoodHitScoreMax {
			goodHits++
		}
	}
	return parents[0].BestDistance, goodHits
}

// Decide passes iff topScore is within TopScoreMax and there are at least MinGoodHits good hits.
// Block reasons are checked in order: no_results, weak_top_score, insufficient_good_hits.
func (g *Guard) Decide(topScore float64, goodHits int, empty bool) models.GuardrailDecision {
	switch {
	case empty:
		return blocked(models.ReasonNoResults)
	case topScore > g.cfg.TopScoreMax:
		return blocked(models.ReasonWeakTopScore)
	case goodHits < g.cfg.MinGoodHits:
		return blocked(models.ReasonInsufficientGoodHits)
	}
	return models.GuardrailDecision{State: models.GuardPass, Reason: models.ReasonOK}
}

func blocked(reason string) models.GuardrailDecision {
	return models.GuardrailDecision{State: models.GuardBlocked, Reason: reason}
}

// Confidence maps topScore linearly onto a base in [0, 1] (1 at or below ConfScoreMin, 0 at or
// above ConfScoreMax), adds BonusPerHit for each good hit up to BonusCapHits, weights the base
// by BaseWeight and clamps to [0, 1]. The score never decreases when topScore improves or
// goodHits grows.
func (g *Guard) Confidence(topScore float64, goodHits int, empty bool) models.ConfidenceResult {
	res := models.ConfidenceResult{Level: models.ConfidenceLow, TopScore: round3(topScore), GoodHits: goodHits}
	if empty {
		return res
	}

	var base float64
	switch {
	case topScore <= g.cfg.ConfScoreMin:
		base = 1
	case topScore >= g.cfg.ConfScoreMax:
		base = 0
	default:
		base = (g.cfg.ConfScoreMax - topScore) / (g.cfg.ConfScoreMax - g.cfg.ConfScoreMin)
	}

	hits := goodHits
	if hits > g.cfg.BonusCapHits {
		hits = g.cfg.BonusCapHits
	}
	bonus := float64(hits) * g.cfg.BonusPerHit

	score := math.Min(g.cfg.BaseWeight*base+bonus, 1)
	if score < 0 {
		score = 0
	}

	res.Score = round3(score)
	res.Details = models.ConfidenceDetails{Base: round3(base), Bonus: round3(bonus)}
	res.Level = g.Level(res.Score)
	return res
}

// Level bins a score with the configured cut points.
func (g *Guard) Level(score float64) models.ConfidenceLevel {
	switch {
	case score >= g.cfg.HighCut:
		return models.ConfidenceHigh
	case score >= g.cfg.MediumCut:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
