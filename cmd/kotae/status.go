package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/registry"
	"github.com/hyperjump/kotae/internal/storage"
)

// statusResponse is the shape of GET /api/v1/status.
type statusResponse struct {
	Documents       int64                  `json:"documents"`
	Chunks          int64                  `json:"chunks"`
	VectorIndexSize int                    `json:"vector_index_size"`
	Commands        int                    `json:"commands"`
	DiskUsageBytes  *int64                 `json:"disk_usage_bytes,omitempty"`
	DiskUsage       *storage.Footprint     `json:"disk_usage,omitempty"`
	Config          map[string]interface{} `json:"config,omitempty"`
}

func newStatusCmd(g *globalFlags) *cobra.Command {
	var (
		serverURL string
		output    string
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show store counts and the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			var (
				status *statusResponse
				netErr *net.OpError
			)
			if serverURL != "" {
				status, err = statusViaHTTP(cmd.Context(), serverURL)
			}
			if serverURL == "" || errors.As(err, &netErr) {
				status, err = statusDirect(g)
			}
			if err != nil {
				return fmt.Errorf("status failed: %w", err)
			}
			if format == cli.OutputJSON {
				return cli.WriteJSON(cmd.OutOrStdout(), status)
			}
			writeStatusText(cmd.OutOrStdout(), status)
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", defaultServerURL, `server URL ("" = open the stores directly)`)
	cmd.Flags().StringVar(&output, "output", "text", "output format: text or json")
	return cmd
}

func statusDirect(g *globalFlags) (*statusResponse, error) {
	cfg, _, logger, err := g.setup()
	if err != nil {
		return nil, err
	}
	defer func() { _ = logger.Sync() }()
	ctx := context.Background()
	reg, err := registry.Load(cfg.Command.RegistryPath)
	if err != nil {
		return nil, err
	}
	components, err := initializeComponents(ctx, cfg, logger, componentSet{})
	if err != nil {
		return nil, err
	}
	defer components.Close()

	docs, err := components.Storage.CountParents(ctx)
	if err != nil {
		return nil, err
	}
	chunks, err := components.Storage.CountChunks(ctx)
	if err != nil {
		return nil, err
	}
	status := &statusResponse{
		Documents:       docs,
		Chunks:          chunks,
		VectorIndexSize: components.Vectors.Size(),
		Commands:        reg.Len(),
		Config: map[string]interface{}{
			"embedding_provider":   cfg.Embedding.Provider,
			"embedding_dimensions": cfg.Embedding.Dimensions,
			"rerank_provider":      cfg.Rerank.Provider,
			"llm_provider":         cfg.LLM.Provider,
			"llm_model":            cfg.LLM.Model,
			"top_k":                cfg.Retrieval.TopK,
			"database_path":        cfg.Storage.DatabasePath,
			"bleve_index_path":     cfg.Storage.BleveIndexPath,
			"vector_index_path":    cfg.Storage.VectorIndexPath,
		},
	}
	if fp, err := storage.MeasureFootprint(cfg.Storage); err == nil {
		n := fp.Total()
		status.DiskUsageBytes = &n
		status.DiskUsage = &fp
	}
	return status, nil
}

func statusViaHTTP(ctx context.Context, serverURL string) (*statusResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(serverURL, "/")+"/api/v1/status", nil)
	if err != nil {
		return nil, err
	}
	resp, err := (&http.Client{Timeout: 10 * time.Second}).Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func writeStatusText(w io.Writer, s *statusResponse) {
	fmt.Fprintf(w, "documents:          %d   # parent documents\n", s.Documents)
	fmt.Fprintf(w, "chunks:             %d   # indexed child chunks\n", s.Chunks)
	fmt.Fprintf(w, "vector_index_size:  %d   # vectors in the similarity index\n", s.VectorIndexSize)
	fmt.Fprintf(w, "commands:           %d   # allow-listed commands\n", s.Commands)
	if s.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # store + indices on disk\n", *s.DiskUsageBytes)
	}
	if s.DiskUsage != nil {
		fmt.Fprintf(w, "  database:         %d\n", s.DiskUsage.Database)
		fmt.Fprintf(w, "  keyword_index:    %d\n", s.DiskUsage.Keyword)
		fmt.Fprintf(w, "  vector_index:     %d\n", s.DiskUsage.Vector)
	}
	if len(s.Config) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# configuration")
	keys := make([]string, 0, len(s.Config))
	for k := range s.Config {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%-21s%v\n", k+":", s.Config[k])
	}
}
