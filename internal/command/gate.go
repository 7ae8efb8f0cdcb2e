// Package command turns a question and its retrieved context into validated action proposals.
// Proposals are never executed here.
package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/registry"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

// Outcome is the result of one proposal attempt.
type Outcome struct {
	Speech   string
	Actions  []models.CommandAction
	Rejected []models.RejectedAction
	Reason   string
	Detail   string
	// Raw is the model output, kept only when it could not be parsed.
	Raw string
	// Proposed is true when the model was called.
	Proposed bool
}

// Gate decides whether a proposal may be requested and validates what comes back.
type Gate struct {
	gen      llm.Generator
	reg      *registry.Registry
	minLevel models.ConfidenceLevel
	messages config.MessagesConfig
	system   string
	logger   *zap.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Gate) {
		g.logger = utils.OrNop(logger)
	}
}

// New returns a Gate that proposes commands from reg.
func New(gen llm.Generator, reg *registry.Registry, cfg config.CommandConfig, messages config.MessagesConfig, opts ...Option) (*Gate, error) {
	level := models.ConfidenceLevel(strings.ToLower(cfg.MinConfidence))
	if level.Rank() == 0 {
		return nil, fmt.Errorf("invalid command.min_confidence: %q (expected low, medium or high)", cfg.MinConfidence)
	}
	g := &Gate{
		gen:      gen,
		reg:      reg,
		minLevel: level,
		messages: messages,
		system:   SystemPrompt(reg),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Propose asks the model for actions when trust allows it. A blocked guardrail or a confidence
// level below the configured minimum returns guidance without calling the model. Generation
// failures are returned as errors.
func (g *Gate) Propose(ctx context.Context, question, contextText string, trust models.Trust) (*Outcome, error) {
	if !trust.Decision.Passed() {
		return g.refuse(trust.Decision.Reason, g.messages.NoCommand), nil
	}
	if trust.Confidence.Level.Rank() < g.minLevel.Rank() {
		g.logger.Info("Command refused on confidence",
			zap.String("level", string(trust.Confidence.Level)),
			zap.String("min_level", string(g.minLevel)),
			zap.Float64("score", trust.Confidence.Score))
		return g.refuse(models.ReasonLowConfidence, g.messages.LowConfidence), nil
	}

	raw, err := g.gen.Generate(ctx, llm.Request{
		System: g.system,
		Prompt: UserPrompt(question, contextText),
		JSON:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("command proposal failed: %w", err)
	}

	proposal, err := Parse(raw)
	if err != nil {
		g.logger.Warn("Command proposal not parseable", zap.Error(err), zap.String("raw", utils.Truncate(raw, 200)))
		out := g.refuse(models.ReasonParseFailed, g.messages.ParseFailed)
		out.Raw = raw
		out.Proposed = true
		return out, nil
	}

	valid, rejected := Validate(g.reg, proposal.Actions)
	for _, r := range rejected {
		g.logger.Info("Command action rejected", zap.String("name", r.Name), zap.String("reason", r.Reason))
	}
	if len(proposal.Actions) > 0 && len(valid) == 0 {
		out := g.refuse(models.ReasonCommandNotAllowed, g.messages.NotAllowed)
		out.Rejected = rejected
		out.Detail = rejected[0].Name + ": " + rejected[0].Reason
		out.Proposed = true
		return out, nil
	}

	speech := strings.TrimSpace(proposal.Speech)
	if speech == "" && len(valid) == 0 {
		speech = g.messages.NoCommand
	}
	return &Outcome{
		Speech:   speech,
		Actions:  valid,
		Rejected: rejected,
		Reason:   models.ReasonOK,
		Proposed: true,
	}, nil
}

func (g *Gate) refuse(reason, speech string) *Outcome {
	return &Outcome{
		Speech:  speech,
		Actions: []models.CommandAction{},
		Reason:  reason,
	}
}
