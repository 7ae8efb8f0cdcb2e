package command

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/registry"
)

func passing(level models.ConfidenceLevel) models.Trust {
	return models.Trust{
		Decision:   models.GuardrailDecision{State: models.GuardPass, Reason: models.ReasonOK},
		Confidence: models.ConfidenceResult{Level: level, Score: 0.8},
	}
}

func newGate(t *testing.T, gen llm.Generator, minLevel string) *Gate {
	t.Helper()
	cfg := config.Default()
	cfg.Command.MinConfidence = minLevel
	g, err := New(gen, registry.Default(), cfg.Command, cfg.Messages)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func TestPropose_BlockedSkipsModel(t *testing.T) {
	gen := llm.NewScripted(`{"type":"command","speech":"x","actions":[]}`)
	g := newGate(t, gen, "medium")
	trust := models.Trust{
		Decision:   models.GuardrailDecision{State: models.GuardBlocked, Reason: models.ReasonNoResults},
		Confidence: models.ConfidenceResult{Level: models.ConfidenceLow},
	}
	out, err := g.Propose(context.Background(), "open the docs", "", trust)
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if out.Reason != models.ReasonNoResults || len(out.Actions) != 0 || out.Proposed {
		t.Errorf("got %+v", out)
	}
	if out.Speech != config.Default().Messages.NoCommand {
		t.Errorf("Speech = %q", out.Speech)
	}
	if len(gen.Calls()) != 0 {
		t.Error("model called while guard blocked")
	}
}

func TestPropose_LowConfidenceSkipsModel(t *testing.T) {
	gen := llm.NewScripted(`{"actions":[]}`)
	g := newGate(t, gen, "medium")
	out, err := g.Propose(context.Background(), "open the docs", "ctx", passing(models.ConfidenceLow))
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if out.Reason != models.ReasonLowConfidence || out.Actions == nil || len(out.Actions) != 0 {
		t.Errorf("got %+v", out)
	}
	if len(gen.Calls()) != 0 {
		t.Error("model called below minimum confidence")
	}

	// The same trust clears a "low" minimum.
	g = newGate(t, gen, "low")
	if out, _ := g.Propose(context.Background(), "open the docs", "ctx", passing(models.ConfidenceLow)); out.Reason != models.ReasonOK {
		t.Errorf("Reason = %q with min low", out.Reason)
	}
}

func TestPropose_Valid(t *testing.T) {
	gen := llm.NewScripted(`{"type":"command","speech":"Opening it.","actions":[{"name":"OpenUrl","args":{"url":"https://example.com"}},{"name":"Reboot","args":{}}]}`)
	g := newGate(t, gen, "medium")
	out, err := g.Propose(context.Background(), "open the docs", "[DOC 1] source=a\nhttps://example.com", passing(models.ConfidenceHigh))
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if out.Reason != models.ReasonOK || out.Speech != "Opening it." {
		t.Errorf("got %+v", out)
	}
	if len(out.Actions) != 1 || out.Actions[0].Name != "OpenUrl" {
		t.Errorf("Actions = %+v", out.Actions)
	}
	if len(out.Rejected) != 1 || out.Rejected[0].Name != "Reboot" {
		t.Errorf("Rejected = %+v", out.Rejected)
	}

	calls := gen.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d", len(calls))
	}
	if !calls[0].JSON || !strings.Contains(calls[0].System, "OpenUrl(url: string)") {
		t.Errorf("system prompt does not list the registry:\n%s", calls[0].System)
	}
	if !strings.Contains(calls[0].Prompt, "[CONTEXT]\n[DOC 1]") || !strings.HasSuffix(calls[0].Prompt, "open the docs") {
		t.Errorf("prompt = %q", calls[0].Prompt)
	}
}

func TestPropose_ParseFailed(t *testing.T) {
	raw := "Sure, I'll open it!"
	g := newGate(t, llm.NewScripted(raw), "medium")
	out, err := g.Propose(context.Background(), "open the docs", "ctx", passing(models.ConfidenceMedium))
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if out.Reason != models.ReasonParseFailed || out.Raw != raw || len(out.Actions) != 0 {
		t.Errorf("got %+v", out)
	}
}

func TestPropose_MalformedActionDroppedAlone(t *testing.T) {
	tests := []struct {
		name string
		bad  string
	}{
		{"args not object", `{"name":"ShowNotification","args":"hi"}`},
		{"name not string", `{"name":7,"args":{}}`},
		{"action not object", `"ShowNotification"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := `{"type":"command","actions":[{"name":"OpenUrl","args":{"url":"https://a"}},` + tt.bad + `]}`
			g := newGate(t, llm.NewScripted(raw), "medium")
			out, err := g.Propose(context.Background(), "open it", "ctx", passing(models.ConfidenceHigh))
			if err != nil {
				t.Fatalf("Propose: %v", err)
			}
			if out.Reason != models.ReasonOK {
				t.Fatalf("Reason = %q, want ok", out.Reason)
			}
			if len(out.Actions) != 1 || out.Actions[0].Name != "OpenUrl" || out.Actions[0].Args["url"] != "https://a" {
				t.Errorf("Actions = %+v", out.Actions)
			}
			if len(out.Rejected) != 1 || out.Rejected[0].Reason != RejectInvalidAction {
				t.Errorf("Rejected = %+v", out.Rejected)
			}
		})
	}
}

func TestPropose_AllRejected(t *testing.T) {
	g := newGate(t, llm.NewScripted(`{"speech":"ok","actions":[{"name":"DeleteEverything","args":{}}]}`), "medium")
	out, err := g.Propose(context.Background(), "wipe it", "ctx", passing(models.ConfidenceHigh))
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if out.Reason != models.ReasonCommandNotAllowed {
		t.Errorf("Reason = %q", out.Reason)
	}
	if out.Detail != "DeleteEverything: "+RejectUnknownCommand {
		t.Errorf("Detail = %q", out.Detail)
	}
	if out.Speech != config.Default().Messages.NotAllowed {
		t.Errorf("Speech = %q", out.Speech)
	}
}

func TestPropose_NoActions(t *testing.T) {
	g := newGate(t, llm.NewScripted(`{"type":"command","actions":[]}`), "medium")
	out, err := g.Propose(context.Background(), "do something", "ctx", passing(models.ConfidenceHigh))
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if out.Reason != models.ReasonOK || out.Speech != config.Default().Messages.NoCommand {
		t.Errorf("got %+v", out)
	}
}

func TestPropose_GenerationError(t *testing.T) {
	gen := llm.NewScripted()
	gen.Err = models.ErrGenerationTimeout
	g := newGate(t, gen, "medium")
	_, err := g.Propose(context.Background(), "open", "ctx", passing(models.ConfidenceHigh))
	if !errors.Is(err, models.ErrGenerationTimeout) {
		t.Errorf("err = %v, want ErrGenerationTimeout", err)
	}
}

func TestNew_InvalidMinConfidence(t *testing.T) {
	cfg := config.Default()
	cfg.Command.MinConfidence = "very"
	if _, err := New(llm.NewScripted(), registry.Default(), cfg.Command, cfg.Messages); err == nil {
		t.Error("expected error")
	}
}
