// Package server provides the HTTP API for Kotae.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/registry"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"go.uber.org/zap"
)

// Pipeline runs the question flows.
type Pipeline interface {
	Answer(ctx context.Context, question string) (*models.AnswerResponse, error)
	Command(ctx context.Context, question string) (*models.CommandResponse, error)
	Ask(ctx context.Context, question string) (*models.AskResponse, error)
}

// WatchService manages watched directories. It may be nil when watching is disabled.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the Kotae API.
type Server struct {
	pipeline   Pipeline
	registry   *registry.Registry
	store      storage.Store
	vectors    vector.Index
	config     *config.Config
	configPath string
	configMu   sync.Mutex
	watch      WatchService
	logger     *zap.Logger
	server     *http.Server
}

// NewServer creates a server with the given dependencies. configPath, when set, receives the
// watch directory list whenever it changes.
func NewServer(
	pipeline Pipeline,
	reg *registry.Registry,
	store storage.Store,
	vectors vector.Index,
	cfg *config.Config,
	logger *zap.Logger,
	watch WatchService,
	configPath string,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		pipeline:   pipeline,
		registry:   reg,
		store:      store,
		vectors:    vectors,
		config:     cfg,
		configPath: configPath,
		watch:      watch,
		logger:     logger,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if s.config.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.config.Server.RequestTimeout))
	}
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/chat", s.handleAnswer)
		r.Post("/command", s.handleCommand)
		r.Post("/ask", s.handleAsk)
		r.Get("/commands", s.handleCommands)
		r.Get("/status", s.handleStatus)
		r.Get("/watch/directories", s.handleWatchDirectoriesList)
		r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
		r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
	})

	// Unversioned aliases kept for older clients.
	r.Post("/chat", s.handleAnswer)
	r.Post("/command", s.handleCommand)
	r.Post("/ask", s.handleAsk)

	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
