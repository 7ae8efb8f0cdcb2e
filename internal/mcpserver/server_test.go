package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/registry"
)

type fakePipeline struct {
	err       error
	questions []string
}

func (f *fakePipeline) Answer(_ context.Context, q string) (*models.AnswerResponse, error) {
	f.questions = append(f.questions, q)
	if f.err != nil {
		return nil, f.err
	}
	return &models.AnswerResponse{Type: models.TypeRAGAnswer, Question: q, Answer: "grounded", Sources: []models.Source{}}, nil
}

func (f *fakePipeline) Command(_ context.Context, q string) (*models.CommandResponse, error) {
	f.questions = append(f.questions, q)
	if f.err != nil {
		return nil, f.err
	}
	return &models.CommandResponse{
		Type:    models.TypeCommand,
		Speech:  "Opening settings.",
		Actions: []models.CommandAction{{Name: "open_settings", Args: map[string]interface{}{"section": "wifi"}}},
	}, nil
}

func (f *fakePipeline) Ask(ctx context.Context, q string) (*models.AskResponse, error) {
	cmd, err := f.Command(ctx, q)
	if err != nil {
		return nil, err
	}
	return &models.AskResponse{
		Intent:  models.Intent{Label: models.IntentCommand, Source: models.IntentSourceRule, Reason: "rule_match:open"},
		Command: cmd,
	}, nil
}

type fakeSources []string

func (f fakeSources) ListSources(context.Context) ([]string, error) { return f, nil }

func TestNew_requiresPipeline(t *testing.T) {
	if _, err := New(nil, nil, "test"); !errors.Is(err, ErrMissingPipeline) {
		t.Errorf("err = %v, want ErrMissingPipeline", err)
	}
}

func TestServer_handleAnswer(t *testing.T) {
	p := &fakePipeline{}
	s, err := New(p, nil, "test")
	if err != nil {
		t.Fatal(err)
	}
	_, out, err := s.handleAnswer(context.Background(), nil, QuestionInput{Question: "what is pairing?"})
	if err != nil {
		t.Fatalf("handleAnswer: %v", err)
	}
	if out.Answer != "grounded" || out.Question != "what is pairing?" {
		t.Errorf("out = %+v", out)
	}
}

func TestServer_handleAsk(t *testing.T) {
	s, err := New(&fakePipeline{}, nil, "test")
	if err != nil {
		t.Fatal(err)
	}
	_, out, err := s.handleAsk(context.Background(), nil, QuestionInput{Question: "open wifi settings"})
	if err != nil {
		t.Fatalf("handleAsk: %v", err)
	}
	if out.Intent.Label != models.IntentCommand || out.Command == nil || out.Answer != nil {
		t.Errorf("out = %+v", out)
	}
}

func TestServer_handlersPropagateErrors(t *testing.T) {
	p := &fakePipeline{err: models.ErrEmptyQuestion}
	s, err := New(p, nil, "test")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, _, err := s.handleAnswer(ctx, nil, QuestionInput{}); !errors.Is(err, models.ErrEmptyQuestion) {
		t.Errorf("answer err = %v", err)
	}
	if _, _, err := s.handleCommand(ctx, nil, QuestionInput{}); !errors.Is(err, models.ErrEmptyQuestion) {
		t.Errorf("command err = %v", err)
	}
	if _, _, err := s.handleAsk(ctx, nil, QuestionInput{}); !errors.Is(err, models.ErrEmptyQuestion) {
		t.Errorf("ask err = %v", err)
	}
}

func TestServer_resources(t *testing.T) {
	reg, err := registry.New([]*registry.Entry{{Name: "open_settings"}})
	if err != nil {
		t.Fatal(err)
	}
	s, err := New(&fakePipeline{}, reg, "test", WithSources(fakeSources{"/docs/a.md"}))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	res, err := s.handleCommandsResource(ctx, &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: "kotae://commands"}})
	if err != nil {
		t.Fatal(err)
	}
	var entries []map[string]interface{}
	if err := json.Unmarshal([]byte(res.Contents[0].Text), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0]["name"] != "open_settings" {
		t.Errorf("entries = %v", entries)
	}

	res, err = s.handleSourcesResource(ctx, &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: "kotae://sources"}})
	if err != nil {
		t.Fatal(err)
	}
	var sources []string
	if err := json.Unmarshal([]byte(res.Contents[0].Text), &sources); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"/docs/a.md"}, sources); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
}

func TestServer_listsToolsOverTransport(t *testing.T) {
	s, err := New(&fakePipeline{}, nil, "test")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := s.server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer session.Close()

	res, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	if diff := cmp.Diff([]string{"answer", "ask", "propose_command"}, names); diff != "" {
		t.Errorf("tools mismatch (-want +got):\n%s", diff)
	}
}
