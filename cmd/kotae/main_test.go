package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := `storage:
  database_path: data/docstore.db
  bleve_index_path: data/bleve
  vector_index_path: data/vectors.bin
embedding:
  provider: hash
  dimensions: 64
rerank:
  provider: lexical
llm:
  provider: openai
  api_key_env: KOTAE_TEST_UNSET_KEY
`
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLoadConfig_explicitPath(t *testing.T) {
	path := writeTestConfig(t)
	cfg, loaded, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if loaded != path {
		t.Errorf("loaded = %q, want %q", loaded, path)
	}
	want := filepath.Join(filepath.Dir(path), "data", "docstore.db")
	if cfg.Storage.DatabasePath != want {
		t.Errorf("DatabasePath = %q, want %q", cfg.Storage.DatabasePath, want)
	}
	if cfg.Embedding.Provider != "hash" {
		t.Errorf("Embedding.Provider = %q", cfg.Embedding.Provider)
	}
}

func TestLoadConfig_defaultFallsBackToWorkingDirectory(t *testing.T) {
	path := writeTestConfig(t)
	t.Chdir(filepath.Dir(path))
	_, loaded, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if filepath.Base(loaded) != "config.yaml" || loaded == defaultConfigPath {
		t.Errorf("loaded = %q, want the working directory config", loaded)
	}
}

func TestLoadConfig_missingExplicitPath(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config")
	}
}

func TestDecodeQuestionResult(t *testing.T) {
	command := `{"type":"command","speech":"ok","actions":[{"name":"open_settings","args":{}}],"guard":{"reason":"ok"},"intent":{"label":"command","source":"rule","reason":"rule_match:open"}}`
	answer := `{"type":"rag_answer","question":"q","answer":"a","sources":[],"guard":{"reason":"no_results"}}`

	res, err := decodeQuestionResult(questionAsk, []byte(command))
	if err != nil {
		t.Fatal(err)
	}
	if res.ask == nil || res.ask.Command == nil || res.ask.Intent.Label != models.IntentCommand {
		t.Errorf("ask = %+v", res.ask)
	}

	res, err = decodeQuestionResult(questionAnswer, []byte(answer))
	if err != nil {
		t.Fatal(err)
	}
	if res.answer == nil || res.answer.Guard.Reason != models.ReasonNoResults {
		t.Errorf("answer = %+v", res.answer)
	}

	if _, err := decodeQuestionResult(questionAnswer, []byte("not json")); err == nil {
		t.Error("expected decode error")
	}
}

func TestQuestionViaHTTP(t *testing.T) {
	var gotPath, gotQuestion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var req models.QuestionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotQuestion = req.Question
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.CommandResponse{
			Type:    models.TypeCommand,
			Speech:  "Opening settings.",
			Actions: []models.CommandAction{},
			Guard:   models.GuardInfo{Reason: models.ReasonOK},
		})
	}))
	defer srv.Close()

	res, err := questionViaHTTP(context.Background(), srv.URL, questionCommand, "open settings")
	if err != nil {
		t.Fatalf("questionViaHTTP: %v", err)
	}
	if gotPath != "/api/v1/command" || gotQuestion != "open settings" {
		t.Errorf("request path=%q question=%q", gotPath, gotQuestion)
	}
	if res.command == nil || res.command.Speech != "Opening settings." {
		t.Errorf("result = %+v", res)
	}
}

func TestQuestionViaHTTP_errorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"question is empty"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := questionViaHTTP(context.Background(), srv.URL, questionAnswer, "x")
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Errorf("err = %v, want a 400 error", err)
	}
}

func TestCLI_ingestTextThenStatus(t *testing.T) {
	path := writeTestConfig(t)

	out, err := runCLI(t, "--config", path, "ingest", "--text", "Hold the home button for five seconds to pair the remote.", "--source", "faq")
	if err != nil {
		t.Fatalf("ingest: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Ingested 1 parent document(s)") {
		t.Errorf("ingest output = %q", out)
	}

	out, err = runCLI(t, "--config", path, "status", "--server", "", "--output", "json")
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	var status statusResponse
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("status output is not JSON: %v\n%s", err, out)
	}
	if status.Documents != 1 || status.Chunks != 1 || status.VectorIndexSize != 1 {
		t.Errorf("status = %+v", status)
	}

	out, err = runCLI(t, "--config", path, "delete", "faq")
	if err != nil {
		t.Fatalf("delete: %v\n%s", err, out)
	}
}

func TestCLI_version(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "kotae version") {
		t.Errorf("version output = %q", out)
	}
}

func TestCLI_commands(t *testing.T) {
	out, err := runCLI(t, "--config", writeTestConfig(t), "commands", "--output", "json")
	if err != nil {
		t.Fatalf("commands: %v\n%s", err, out)
	}
	var decoded struct {
		Commands []map[string]interface{} `json:"commands"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("commands output is not JSON: %v\n%s", err, out)
	}
	if len(decoded.Commands) == 0 {
		t.Error("expected built-in commands")
	}
}
