// Package mcpserver exposes the question pipeline as MCP tools over stdio.
package mcpserver

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/registry"
	"github.com/hyperjump/kotae/pkg/utils"
)

// ErrMissingPipeline is returned when no pipeline is provided.
var ErrMissingPipeline = errors.New("mcp: pipeline is required")

// Pipeline answers questions and proposes commands.
type Pipeline interface {
	Answer(ctx context.Context, question string) (*models.AnswerResponse, error)
	Command(ctx context.Context, question string) (*models.CommandResponse, error)
	Ask(ctx context.Context, question string) (*models.AskResponse, error)
}

// SourceLister lists ingested sources. Optional.
type SourceLister interface {
	ListSources(ctx context.Context) ([]string, error)
}

// Server is the MCP server.
type Server struct {
	pipeline Pipeline
	registry *registry.Registry
	sources  SourceLister
	version  string
	logger   *zap.Logger
	server   *mcp.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.logger = utils.OrNop(logger) }
}

// WithSources enables the sources resource.
func WithSources(sources SourceLister) Option {
	return func(s *Server) { s.sources = sources }
}

// New creates an MCP server. reg may be nil, in which case the commands resource is not
// registered.
func New(pipeline Pipeline, reg *registry.Registry, version string, opts ...Option) (*Server, error) {
	if pipeline == nil {
		return nil, ErrMissingPipeline
	}
	s := &Server{
		pipeline: pipeline,
		registry: reg,
		version:  version,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.server = mcp.NewServer(&mcp.Implementation{Name: "kotae", Version: version}, nil)
	s.registerTools()
	s.registerResources()
	return s, nil
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("MCP server starting", zap.String("transport", "stdio"))
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
