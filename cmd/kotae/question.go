package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/models"
)

// questionKind selects one of the three question flows.
type questionKind struct {
	use   string
	short string
	path  string
}

var (
	questionAsk = questionKind{
		use:   "ask",
		short: "Route a request to an answer or a command proposal",
		path:  "/api/v1/ask",
	}
	questionAnswer = questionKind{
		use:   "answer",
		short: "Answer a question from the ingested documents",
		path:  "/api/v1/chat",
	}
	questionCommand = questionKind{
		use:   "command",
		short: "Propose allow-listed commands for a request",
		path:  "/api/v1/command",
	}
)

func newQuestionCmd(g *globalFlags, kind questionKind) *cobra.Command {
	var (
		serverURL string
		output    string
	)
	cmd := &cobra.Command{
		Use:   kind.use + " [flags] <question>",
		Short: kind.short,
		Long: kind.short + `.

The question is all remaining arguments joined by spaces. When a server is reachable at
--server the request goes through its HTTP API; otherwise the stores are opened directly.
Pass --server "" to always open the stores.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return models.ErrEmptyQuestion
			}
			resp, err := runQuestion(cmd.Context(), g, kind, serverURL, question)
			if err != nil {
				return err
			}
			return resp.write(cmd.OutOrStdout(), format)
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", defaultServerURL, `server URL ("" = open the stores directly)`)
	cmd.Flags().StringVar(&output, "output", "text", "output format: text or json")
	return cmd
}

// questionResult holds whichever response a flow produced.
type questionResult struct {
	answer  *models.AnswerResponse
	command *models.CommandResponse
	ask     *models.AskResponse
}

func (r *questionResult) write(w io.Writer, format cli.OutputFormat) error {
	switch {
	case r.ask != nil:
		return cli.WriteAsk(w, r.ask, format)
	case r.command != nil:
		return cli.WriteCommand(w, r.command, format)
	default:
		return cli.WriteAnswer(w, r.answer, format)
	}
}

func runQuestion(ctx context.Context, g *globalFlags, kind questionKind, serverURL, question string) (*questionResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if serverURL != "" {
		res, err := questionViaHTTP(ctx, serverURL, kind, question)
		if err == nil {
			return res, nil
		}
		var netErr *net.OpError
		if !errors.As(err, &netErr) {
			return nil, err
		}
	}

	cfg, _, logger, err := g.setup()
	if err != nil {
		return nil, err
	}
	defer func() { _ = logger.Sync() }()
	components, err := initializeComponents(ctx, cfg, logger, componentSet{pipeline: true})
	if err != nil {
		return nil, err
	}
	defer components.Close()
	logger.Debug("Answering without a server", zap.String("flow", kind.use))

	p := components.Pipeline
	switch kind.use {
	case questionAsk.use:
		resp, err := p.Ask(ctx, question)
		return &questionResult{ask: resp}, err
	case questionCommand.use:
		resp, err := p.Command(ctx, question)
		return &questionResult{command: resp}, err
	default:
		resp, err := p.Answer(ctx, question)
		return &questionResult{answer: resp}, err
	}
}

func questionViaHTTP(ctx context.Context, serverURL string, kind questionKind, question string) (*questionResult, error) {
	body, err := json.Marshal(models.QuestionRequest{Question: question})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(serverURL, "/")+kind.path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return decodeQuestionResult(kind, data)
}

// decodeQuestionResult decodes a response body. An ask body is told apart by its type field.
func decodeQuestionResult(kind questionKind, data []byte) (*questionResult, error) {
	var probe struct {
		Type   string         `json:"type"`
		Intent *models.Intent `json:"intent"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	res := &questionResult{}
	if probe.Type == models.TypeCommand {
		res.command = &models.CommandResponse{}
		if err := json.Unmarshal(data, res.command); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	} else {
		res.answer = &models.AnswerResponse{}
		if err := json.Unmarshal(data, res.answer); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}
	if kind.use == questionAsk.use {
		ask := &models.AskResponse{Answer: res.answer, Command: res.command}
		if probe.Intent != nil {
			ask.Intent = *probe.Intent
		}
		return &questionResult{ask: ask}, nil
	}
	return res, nil
}
