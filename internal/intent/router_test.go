package intent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"golang.org/x/text/unicode/norm"
)

func newRouter(t *testing.T, gen llm.Generator, cfg config.IntentConfig) *Router {
	t.Helper()
	r, err := New(gen, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestClassify_RulesSkipModel(t *testing.T) {
	tests := []struct {
		question string
		want     models.IntentLabel
	}{
		{"음악 재생해줘", models.IntentCommand},
		{"다크 모드로 바꿔줘", models.IntentCommand},
		{"이 노트 저장해줘", models.IntentCommand},
		{"open this URL: https://example.com/docs", models.IntentCommand},
		{"Please save a note about the meeting", models.IntentCommand},
		{"turn on dark mode", models.IntentCommand},
		{"RAG가 뭐야", models.IntentExplain},
		{"리랭커의 원리", models.IntentExplain},
		{"벡터 검색이랑 키워드 검색 차이", models.IntentExplain},
		{"RAG를 설명해줘", models.IntentExplain},
		{"what is a parent document?", models.IntentExplain},
		{"explain the confidence score", models.IntentExplain},
		{"the index is stale?", models.IntentExplain},
		{"Can you open the settings?", models.IntentCommand},
		{"could you please turn off dark mode?", models.IntentCommand},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			gen := llm.NewScripted(`{"intent":"command","reason":"should not be called"}`)
			r := newRouter(t, gen, config.IntentConfig{})
			got := r.Classify(context.Background(), tt.question)
			if got.Label != tt.want {
				t.Errorf("Label = %q, want %q (reason %q)", got.Label, tt.want, got.Reason)
			}
			if got.Source != models.IntentSourceRule {
				t.Errorf("Source = %q, want rule", got.Source)
			}
			if !strings.HasPrefix(got.Reason, "rule_match:") {
				t.Errorf("Reason = %q, want rule_match prefix", got.Reason)
			}
			if n := len(gen.Calls()); n != 0 {
				t.Errorf("model called %d times on a rule match", n)
			}
		})
	}
}

func TestMatch_DecomposedHangul(t *testing.T) {
	r := newRouter(t, nil, config.IntentConfig{})
	q := norm.NFD.String("음악 재생해줘")
	if q == "음악 재생해줘" {
		t.Fatal("test input is not decomposed")
	}
	got, ok := r.Match(q)
	if !ok || got.Label != models.IntentCommand {
		t.Errorf("Match(NFD) = %+v, %v; want command", got, ok)
	}
}

func TestClassify_PoliteRequestDefersToModel(t *testing.T) {
	for _, q := range []string{"Can you check why the index is stale?", "would you handle the weekly report?"} {
		t.Run(q, func(t *testing.T) {
			gen := llm.NewScripted(`{"intent":"command","reason":"asks to act"}`)
			r := newRouter(t, gen, config.IntentConfig{})
			if _, ok := r.Match(q); ok {
				t.Fatalf("Match(%q) settled by a rule", q)
			}
			got := r.Classify(context.Background(), q)
			if got.Label != models.IntentCommand || got.Source != models.IntentSourceModel {
				t.Errorf("got %+v, want command from model", got)
			}
			if n := len(gen.Calls()); n != 1 {
				t.Errorf("model calls = %d, want 1", n)
			}
		})
	}
}

func TestClassify_TooShort(t *testing.T) {
	gen := llm.NewScripted(`{"intent":"command","reason":"x"}`)
	r := newRouter(t, gen, config.IntentConfig{})
	for _, q := range []string{"", "  ", "ok", " 켜 "} {
		got := r.Classify(context.Background(), q)
		if got.Label != models.IntentExplain || got.Reason != ReasonTooShort {
			t.Errorf("Classify(%q) = %+v, want explain/too_short", q, got)
		}
	}
	if len(gen.Calls()) != 0 {
		t.Error("model called for short input")
	}
}

func TestClassify_ModelFallback(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		err        error
		wantLabel  models.IntentLabel
		wantReason string
	}{
		{"command", `{"intent":"command","reason":"asks to act"}`, nil, models.IntentCommand, "asks to act"},
		{"explain fenced", "```json\n{\"intent\":\"explain\",\"reason\":\"info\"}\n```", nil, models.IntentExplain, "info"},
		{"uppercase label", `{"intent":"COMMAND","reason":"r"}`, nil, models.IntentCommand, "r"},
		{"unknown label", `{"intent":"maybe","reason":"r"}`, nil, models.IntentExplain, ReasonModelParseFailed},
		{"not json", `I think it is a command`, nil, models.IntentExplain, ReasonModelParseFailed},
		{"bad json", `{"intent": command}`, nil, models.IntentExplain, ReasonModelParseFailed},
		{"generation error", "", models.ErrGenerationUnavailable, models.IntentExplain, ReasonModelUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := llm.NewScripted(tt.reply)
			gen.Err = tt.err
			r := newRouter(t, gen, config.IntentConfig{})
			got := r.Classify(context.Background(), "the weekly report from the staging cluster")
			if got.Label != tt.wantLabel || got.Reason != tt.wantReason {
				t.Errorf("got %+v, want %s/%s", got, tt.wantLabel, tt.wantReason)
			}
			if got.Source != models.IntentSourceModel {
				t.Errorf("Source = %q, want model", got.Source)
			}
			calls := gen.Calls()
			if len(calls) != 1 {
				t.Fatalf("model calls = %d, want 1", len(calls))
			}
			if !calls[0].JSON || !strings.Contains(calls[0].Prompt, "staging cluster") {
				t.Errorf("unexpected request: %+v", calls[0])
			}
		})
	}
}

func TestClassify_NilGenerator(t *testing.T) {
	r := newRouter(t, nil, config.IntentConfig{})
	got := r.Classify(context.Background(), "the weekly report from the staging cluster")
	if got.Label != models.IntentExplain || got.Reason != ReasonModelUnavailable {
		t.Errorf("got %+v", got)
	}
}

func TestClassify_ConfiguredPatterns(t *testing.T) {
	gen := llm.NewScripted()
	r := newRouter(t, gen, config.IntentConfig{
		CommandPatterns: []string{`부탁해`},
		ExplainPatterns: []string{`(?i)\btl;?dr\b`},
	})
	if got := r.Classify(context.Background(), "알림 하나 부탁해"); got.Label != models.IntentCommand {
		t.Errorf("custom command pattern: got %+v", got)
	}
	if got := r.Classify(context.Background(), "tldr of the release notes"); got.Label != models.IntentExplain || got.Source != models.IntentSourceRule {
		t.Errorf("custom explain pattern: got %+v", got)
	}
	if len(gen.Calls()) != 0 {
		t.Error("model called despite configured patterns")
	}
}

func TestNew_InvalidPattern(t *testing.T) {
	_, err := New(nil, config.IntentConfig{CommandPatterns: []string{"("}})
	if err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}

func TestClassify_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := llm.Func(func(ctx context.Context, _ llm.Request) (string, error) {
		return "", errors.Join(models.ErrGenerationUnavailable, ctx.Err())
	})
	r := newRouter(t, gen, config.IntentConfig{})
	got := r.Classify(ctx, "the weekly report from the staging cluster")
	if got.Label != models.IntentExplain || got.Reason != ReasonModelUnavailable {
		t.Errorf("got %+v", got)
	}
}
