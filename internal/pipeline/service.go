// Package pipeline answers questions and proposes commands over retrieved documents.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/kotae/internal/command"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/contextfmt"
	"github.com/hyperjump/kotae/internal/guard"
	"github.com/hyperjump/kotae/internal/intent"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/retrieval"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

// PreviewRunes is the length of a source preview.
const PreviewRunes = 180

// Retriever returns re-ranked chunk candidates.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) (*retrieval.Result, error)
}

// ParentResolver turns chunk candidates into unique parent documents.
type ParentResolver interface {
	Reconstruct(ctx context.Context, candidates []*models.RetrievalCandidate, topK int) ([]*models.ScoredParent, error)
}

// Deps are the components a Service is built from.
type Deps struct {
	Retriever Retriever
	Parents   ParentResolver
	Guard     *guard.Guard
	Formatter *contextfmt.Formatter
	Generator llm.Generator
	Gate      *command.Gate
	Router    *intent.Router
}

// Service runs the answer, command and ask flows. It is safe for concurrent use.
type Service struct {
	deps       Deps
	topK       int
	genTimeout time.Duration
	messages   config.MessagesConfig
	system     string
	logger     *zap.Logger
}

// New creates a Service.
func New(deps Deps, cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		deps:       deps,
		topK:       cfg.Retrieval.TopK,
		genTimeout: cfg.LLM.Timeout,
		messages:   cfg.Messages,
		system:     fmt.Sprintf(answerSystemPrompt, cfg.Messages.NoEvidence),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// retrieved is the shared front half of every flow.
type retrieved struct {
	parents  []*models.ScoredParent
	trust    models.Trust
	degraded bool
}

func (s *Service) retrieve(ctx context.Context, question string) (*retrieved, error) {
	res, err := s.deps.Retriever.Retrieve(ctx, question, s.topK)
	if err != nil {
		return nil, err
	}
	parents, err := s.deps.Parents.Reconstruct(ctx, res.Candidates, s.topK)
	if err != nil {
		return nil, err
	}
	trust := s.deps.Guard.Evaluate(parents)
	s.logger.Debug("Retrieved parents",
		zap.Int("candidates", len(res.Candidates)),
		zap.Int("parents", len(parents)),
		zap.String("guard", trust.Decision.Reason),
		zap.String("confidence", string(trust.Confidence.Level)),
		zap.Bool("degraded", res.Degraded))
	return &retrieved{parents: parents, trust: trust, degraded: res.Degraded}, nil
}

// Answer answers question from the retrieved documents. A blocked guardrail returns a fixed
// message and never calls the generator.
func (s *Service) Answer(ctx context.Context, question string) (*models.AnswerResponse, error) {
	req := models.QuestionRequest{Question: question}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r, err := s.retrieve(ctx, req.Question)
	if err != nil {
		return nil, err
	}

	resp := &models.AnswerResponse{
		Type:       models.TypeRAGAnswer,
		Question:   req.Question,
		Sources:    sources(r.parents),
		Guard:      guardInfo(r.trust, r.trust.Decision.Reason, ""),
		Confidence: confidence(r.trust),
		Degraded:   r.degraded,
	}
	if !r.trust.Decision.Passed() {
		resp.Answer = s.messages.InsufficientEvidence
		if r.trust.Decision.Reason == models.ReasonNoResults {
			resp.Answer = s.messages.NoEvidence
		}
		return resp, nil
	}

	contextText := s.deps.Formatter.Format(r.parents)
	genCtx, cancel := s.generationContext(ctx)
	defer cancel()
	answer, err := s.deps.Generator.Generate(genCtx, llm.Request{
		System: s.system,
		Prompt: answerPrompt(req.Question, contextText),
	})
	if err != nil {
		s.logger.Error("Answer generation failed", zap.Error(err))
		return nil, err
	}
	resp.Answer = strings.TrimSpace(answer)
	return resp, nil
}

// Command proposes validated actions for question. Proposals are returned, never executed.
func (s *Service) Command(ctx context.Context, question string) (*models.CommandResponse, error) {
	req := models.QuestionRequest{Question: question}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r, err := s.retrieve(ctx, req.Question)
	if err != nil {
		return nil, err
	}

	contextText := ""
	if r.trust.Decision.Passed() {
		contextText = s.deps.Formatter.Format(r.parents)
	}
	genCtx, cancel := s.generationContext(ctx)
	defer cancel()
	out, err := s.deps.Gate.Propose(genCtx, req.Question, contextText, r.trust)
	if err != nil {
		s.logger.Error("Command generation failed", zap.Error(err))
		return nil, err
	}
	return &models.CommandResponse{
		Type:       models.TypeCommand,
		Speech:     out.Speech,
		Actions:    out.Actions,
		Confidence: confidence(r.trust),
		Sources:    sources(r.parents),
		Guard:      guardInfo(r.trust, out.Reason, out.Detail),
		Rejected:   out.Rejected,
		Raw:        out.Raw,
		Degraded:   r.degraded,
	}, nil
}

// Ask classifies question and runs the matching flow.
func (s *Service) Ask(ctx context.Context, question string) (*models.AskResponse, error) {
	req := models.QuestionRequest{Question: question}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	in := s.deps.Router.Classify(ctx, req.Question)
	s.logger.Info("Routed question",
		zap.String("intent", string(in.Label)),
		zap.String("source", string(in.Source)),
		zap.String("reason", in.Reason))

	if in.Label == models.IntentCommand {
		resp, err := s.Command(ctx, req.Question)
		if err != nil {
			return nil, err
		}
		resp.Intent = &in
		return &models.AskResponse{Intent: in, Command: resp}, nil
	}
	resp, err := s.Answer(ctx, req.Question)
	if err != nil {
		return nil, err
	}
	resp.Intent = &in
	return &models.AskResponse{Intent: in, Answer: resp}, nil
}

func (s *Service) generationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.genTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.genTimeout)
}

func sources(parents []*models.ScoredParent) []models.Source {
	out := make([]models.Source, 0, len(parents))
	for _, p := range parents {
		out = append(out, models.Source{
			Source:  p.Source(),
			Score:   p.BestDistance,
			Preview: utils.Prefix(p.Text(), PreviewRunes),
		})
	}
	return out
}

// guardInfo reports the reason with the trust measures, which are omitted when nothing
// was retrieved.
func guardInfo(trust models.Trust, reason, detail string) models.GuardInfo {
	info := models.GuardInfo{Reason: reason, Detail: detail}
	if trust.Decision.Reason != models.ReasonNoResults {
		top := trust.Confidence.TopScore
		hits := trust.Confidence.GoodHits
		info.TopScore = &top
		info.GoodHits = &hits
	}
	return info
}

func confidence(trust models.Trust) *models.ConfidenceResult {
	c := trust.Confidence
	return &c
}
