package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"go.uber.org/zap"
)

func (s *Server) decodeQuestion(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req models.QuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return req.Question, true
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	question, ok := s.decodeQuestion(w, r)
	if !ok {
		return
	}
	s.logger.Debug("answer request", zap.String("question", question))
	resp, err := s.pipeline.Answer(r.Context(), question)
	if err != nil {
		s.respondPipelineError(w, "answer", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	question, ok := s.decodeQuestion(w, r)
	if !ok {
		return
	}
	s.logger.Debug("command request", zap.String("question", question))
	resp, err := s.pipeline.Command(r.Context(), question)
	if err != nil {
		s.respondPipelineError(w, "command", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	question, ok := s.decodeQuestion(w, r)
	if !ok {
		return
	}
	s.logger.Debug("ask request", zap.String("question", question))
	resp, err := s.pipeline.Ask(r.Context(), question)
	if err != nil {
		s.respondPipelineError(w, "ask", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp.Body())
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"commands": s.registry.Entries()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.store.CountParents(ctx)
	if err != nil {
		s.logger.Error("status: count parents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	chunkCount, err := s.store.CountChunks(ctx)
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"documents":         docCount,
		"chunks":            chunkCount,
		"vector_index_size": s.vectors.Size(),
		"commands":          s.registry.Len(),
	}

	cfg := s.config
	resp["config"] = map[string]interface{}{
		"embedding_provider":   cfg.Embedding.Provider,
		"embedding_dimensions": cfg.Embedding.Dimensions,
		"rerank_provider":      cfg.Rerank.Provider,
		"rerank_on_failure":    cfg.Rerank.OnFailure,
		"llm_provider":         cfg.LLM.Provider,
		"llm_model":            cfg.LLM.Model,
		"top_k":                cfg.Retrieval.TopK,
		"initial_k":            cfg.Retrieval.EffectiveInitialK(cfg.Retrieval.TopK),
		"database_path":        cfg.Storage.DatabasePath,
		"bleve_index_path":     cfg.Storage.BleveIndexPath,
		"vector_index_path":    cfg.Storage.VectorIndexPath,
	}
	if fp, err := storage.MeasureFootprint(cfg.Storage); err == nil {
		resp["disk_usage_bytes"] = fp.Total()
		resp["disk_usage"] = fp
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

func (s *Server) persistWatchDirectories() {
	if s.configPath == "" {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config.Watch.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.config); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrEmptyQuestion):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrRetrievalUnavailable), errors.Is(err, models.ErrRerankUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrGenerationTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, models.ErrGenerationUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondPipelineError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if errors.Is(err, context.Canceled) {
		s.logger.Debug(op+" canceled", zap.Error(err))
	} else {
		s.logger.Error(op+" failed", zap.Error(err), zap.Int("status", status))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
