package guard

import (
	"testing"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
)

func testGuard() *Guard {
	cfg := config.Default().Guard
	cfg.TopScoreMax = 0.3
	cfg.MinGoodHits = 2
	return New(cfg)
}

func parents(dists ...float64) []*models.ScoredParent {
	out := make([]*models.ScoredParent, len(dists))
	for i, d := range dists {
		out[i] = &models.ScoredParent{DocID: string(rune('A' + i)), BestDistance: d}
	}
	return out
}

func TestEvaluate_HighConfidencePass(t *testing.T) {
	trust := testGuard().Evaluate(parents(0.05, 0.1, 0.2))
	if !trust.Decision.Passed() || trust.Decision.Reason != models.ReasonOK {
		t.Errorf("decision = %+v, want pass", trust.Decision)
	}
	if trust.Confidence.Level != models.ConfidenceHigh {
		t.Errorf("level = %s, want high", trust.Confidence.Level)
	}
	if trust.Confidence.TopScore != 0.05 || trust.Confidence.GoodHits != 3 {
		t.Errorf("confidence = %+v", trust.Confidence)
	}
}

func TestEvaluate_Empty(t *testing.T) {
	trust := testGuard().Evaluate(nil)
	if trust.Decision.State != models.GuardBlocked || trust.Decision.Reason != models.ReasonNoResults {
		t.Errorf("decision = %+v", trust.Decision)
	}
	if trust.Confidence.Score != 0 || trust.Confidence.Level != models.ConfidenceLow || trust.Confidence.TopScore != WorstScore {
		t.Errorf("confidence = %+v", trust.Confidence)
	}
}

func TestDecide_Reasons(t *testing.T) {
	g := testGuard()
	tests := []struct {
		name   string
		dists  []float64
		reason string
	}{
		{"weak top score", []float64{0.35, 0.1, 0.1}, models.ReasonWeakTopScore},
		{"weak top wins over hits", []float64{0.9}, models.ReasonWeakTopScore},
		{"insufficient good hits", []float64{0.1, 0.7}, models.ReasonInsufficientGoodHits},
		{"boundary passes", []float64{0.3, 0.55}, models.ReasonOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := g.Evaluate(parents(tt.dists...)).Decision
			if d.Reason != tt.reason {
				t.Errorf("reason = %s, want %s", d.Reason, tt.reason)
			}
			if (d.Reason == models.ReasonOK) != d.Passed() {
				t.Errorf("state %s inconsistent with reason %s", d.State, d.Reason)
			}
		})
	}
}

func TestDecide_Deterministic(t *testing.T) {
	g := testGuard()
	ps := parents(0.2, 0.4, 0.6)
	first := g.Evaluate(ps)
	for i := 0; i < 10; i++ {
		if got := g.Evaluate(ps); got != first {
			t.Fatalf("run %d: %+v != %+v", i, got, first)
		}
	}
}

func TestConfidence_Formula(t *testing.T) {
	g := testGuard()
	tests := []struct {
		top   float64
		hits  int
		score float64
		base  float64
		level models.ConfidenceLevel
	}{
		{0.1, 0, 1, 1, models.ConfidenceHigh},
		{0.4, 0, 0.5, 0.5, models.ConfidenceMedium},
		{0.4, 2, 0.6, 0.5, models.ConfidenceMedium},
		{0.4, 9, 0.65, 0.5, models.ConfidenceMedium},
		{0.5, 1, 0.3, 0.25, models.ConfidenceLow},
		{0.8, 3, 0.15, 0, models.ConfidenceLow},
	}
	for _, tt := range tests {
		c := g.Confidence(tt.top, tt.hits, false)
		if c.Score != tt.score || c.Details.Base != tt.base || c.Level != tt.level {
			t.Errorf("Confidence(%v, %d) = %+v, want score %v base %v level %s",
				tt.top, tt.hits, c, tt.score, tt.base, tt.level)
		}
	}
}

func TestConfidence_Monotone(t *testing.T) {
	g := testGuard()
	for hits := 0; hits <= 6; hits++ {
		prev := -1.0
		for top := 1.0; top >= 0; top -= 0.01 {
			s := g.Confidence(top, hits, false).Score
			if s < prev {
				t.Fatalf("score dropped from %v to %v as top improved to %v (hits=%d)", prev, s, top, hits)
			}
			prev = s
		}
	}
	for top := 0.0; top <= 1; top += 0.05 {
		prev := -1.0
		for hits := 0; hits <= 6; hits++ {
			s := g.Confidence(top, hits, false).Score
			if s < prev {
				t.Fatalf("score dropped from %v to %v as hits grew to %d (top=%v)", prev, s, hits, top)
			}
			prev = s
		}
	}
}

func TestLevel(t *testing.T) {
	g := testGuard()
	if g.Level(0.75) != models.ConfidenceHigh || g.Level(0.749) != models.ConfidenceMedium ||
		g.Level(0.5) != models.ConfidenceMedium || g.Level(0.49) != models.ConfidenceLow {
		t.Error("cut points not applied inclusively")
	}
}
