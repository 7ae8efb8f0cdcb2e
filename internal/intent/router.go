// Package intent decides whether a question asks for an explanation or an action.
package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// Reasons reported when no rule decided the intent and the model could not either.
const (
	ReasonTooShort         = "too_short"
	ReasonModelParseFailed = "model_parse_failed"
	ReasonModelUnavailable = "model_unavailable"
)

const systemPrompt = `You classify a user's input for a local assistant.
Answer "explain" when the user asks for information or an explanation.
Answer "command" when the user asks the app to do something (open, play, save, change, copy, navigate).
Korean hints: ~해줘/~해봐/~바꿔줘/~열어줘/~재생해줘/~저장해줘 ask for an action; ~뭐야/~설명해줘/~왜 그래/~원리가 뭐야 ask for information.
When unsure, answer "explain".
Reply with exactly one JSON object: {"intent": "command" | "explain", "reason": "<short reason>"}`

// rule is one lexicon pattern. A rule with an empty label stops the rule pass and defers to the model.
type rule struct {
	label   models.IntentLabel
	pattern string
	re      *regexp.Regexp
}

// Router classifies questions with the rule lexicons and falls back to a generative model.
type Router struct {
	gen    llm.Generator
	rules  []rule
	logger *zap.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Router) {
		r.logger = utils.OrNop(logger)
	}
}

// New builds a Router. Extra patterns from cfg are appended to the built-in lexicons.
func New(gen llm.Generator, cfg config.IntentConfig, opts ...Option) (*Router, error) {
	r := &Router{gen: gen, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	groups := []struct {
		label    models.IntentLabel
		patterns []string
	}{
		{models.IntentExplain, explicitExplain},
		{models.IntentCommand, append(append([]string(nil), commandHints...), cfg.CommandPatterns...)},
		{"", politeRequest},
		{models.IntentExplain, append(append([]string(nil), explainHints...), cfg.ExplainPatterns...)},
	}
	for _, g := range groups {
		for _, p := range g.patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("invalid intent pattern %q: %w", p, err)
			}
			r.rules = append(r.rules, rule{label: g.label, pattern: p, re: re})
		}
	}
	return r, nil
}

// Match runs only the rule pass over the NFC form of question. ok is false when no rule applies.
func (r *Router) Match(question string) (models.Intent, bool) {
	q := norm.NFC.String(strings.TrimSpace(question))
	if utf8.RuneCountInString(q) <= 2 {
		return models.Intent{Label: models.IntentExplain, Source: models.IntentSourceRule, Reason: ReasonTooShort}, true
	}
	for _, rl := range r.rules {
		if rl.re.MatchString(q) {
			if rl.label == "" {
				return models.Intent{}, false
			}
			return models.Intent{Label: rl.label, Source: models.IntentSourceRule, Reason: "rule_match:" + rl.pattern}, true
		}
	}
	return models.Intent{}, false
}

// Classify returns the intent of question. It never fails: any model problem yields explain.
func (r *Router) Classify(ctx context.Context, question string) models.Intent {
	if in, ok := r.Match(question); ok {
		r.logger.Debug("Intent decided by rule", zap.String("intent", string(in.Label)), zap.String("reason", in.Reason))
		return in
	}
	in := r.classifyWithModel(ctx, question)
	r.logger.Debug("Intent decided by model", zap.String("intent", string(in.Label)), zap.String("reason", in.Reason))
	return in
}

type modelReply struct {
	Intent string `json:"intent"`
	Reason string `json:"reason"`
}

func (r *Router) classifyWithModel(ctx context.Context, question string) models.Intent {
	fallback := func(reason string) models.Intent {
		return models.Intent{Label: models.IntentExplain, Source: models.IntentSourceModel, Reason: reason}
	}
	if r.gen == nil {
		return fallback(ReasonModelUnavailable)
	}
	raw, err := r.gen.Generate(ctx, llm.Request{
		System: systemPrompt,
		Prompt: "[USER_INPUT]\n" + strings.TrimSpace(question),
		JSON:   true,
	})
	if err != nil {
		level := r.logger.Warn
		if errors.Is(err, context.Canceled) {
			level = r.logger.Debug
		}
		level("Intent model call failed", zap.Error(err))
		return fallback(ReasonModelUnavailable)
	}
	obj, ok := utils.ExtractJSONObject(raw)
	if !ok {
		r.logger.Warn("Intent model reply is not JSON", zap.String("raw", utils.Truncate(raw, 200)))
		return fallback(ReasonModelParseFailed)
	}
	var reply modelReply
	if err := json.Unmarshal([]byte(obj), &reply); err != nil {
		r.logger.Warn("Intent model reply is malformed", zap.Error(err))
		return fallback(ReasonModelParseFailed)
	}
	label := models.IntentLabel(strings.ToLower(strings.TrimSpace(reply.Intent)))
	if !label.Valid() {
		r.logger.Warn("Intent model returned an unknown label", zap.String("intent", reply.Intent))
		return fallback(ReasonModelParseFailed)
	}
	return models.Intent{Label: label, Source: models.IntentSourceModel, Reason: reply.Reason}
}
