package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

// QuestionInput is the input of every question tool.
type QuestionInput struct {
	Question string `json:"question" jsonschema:"the user's question or request"`
}

// AskOutput carries the route and the response it produced. Exactly one of Answer and
// Command is set.
type AskOutput struct {
	Intent  models.Intent           `json:"intent"`
	Answer  *models.AnswerResponse  `json:"answer,omitempty"`
	Command *models.CommandResponse `json:"command,omitempty"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Route a request to a grounded answer or a validated command proposal",
	}, s.handleAsk)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "answer",
		Description: "Answer a question from the ingested documents, citing them as [DOC i]",
	}, s.handleAnswer)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "propose_command",
		Description: "Propose allow-listed device commands for a request. Commands are never executed",
	}, s.handleCommand)
}

func (s *Server) handleAnswer(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QuestionInput,
) (*mcp.CallToolResult, models.AnswerResponse, error) {
	resp, err := s.pipeline.Answer(ctx, input.Question)
	if err != nil {
		s.logger.Warn("MCP answer failed", zap.Error(err))
		return nil, models.AnswerResponse{}, err
	}
	return nil, *resp, nil
}

func (s *Server) handleCommand(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QuestionInput,
) (*mcp.CallToolResult, models.CommandResponse, error) {
	resp, err := s.pipeline.Command(ctx, input.Question)
	if err != nil {
		s.logger.Warn("MCP command failed", zap.Error(err))
		return nil, models.CommandResponse{}, err
	}
	return nil, *resp, nil
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QuestionInput,
) (*mcp.CallToolResult, AskOutput, error) {
	resp, err := s.pipeline.Ask(ctx, input.Question)
	if err != nil {
		s.logger.Warn("MCP ask failed", zap.Error(err))
		return nil, AskOutput{}, err
	}
	return nil, AskOutput{Intent: resp.Intent, Answer: resp.Answer, Command: resp.Command}, nil
}
