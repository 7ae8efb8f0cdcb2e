package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/models"
)

func newIngestCmd(g *globalFlags) *cobra.Command {
	var (
		output string
		text   string
		source string
		domain string
	)
	cmd := &cobra.Command{
		Use:   "ingest [flags] <file-or-directory>...",
		Short: "Ingest files, directories or raw text into the stores",
		Long: `Ingest extracts text from each file, splits it into parent documents and child chunks,
and indexes the chunks for retrieval. Directories are walked recursively. Files that have not
changed since their last ingestion are skipped.

Use --text with --source to ingest a text snippet without a file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			if text == "" && len(args) == 0 {
				return fmt.Errorf("nothing to ingest: pass paths or --text")
			}
			cfg, _, logger, err := g.setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			components, err := initializeComponents(ctx, cfg, logger, componentSet{})
			if err != nil {
				return err
			}
			defer components.Close()

			if text != "" {
				ids, err := components.Ingester.IngestText(ctx, &models.ParentInput{
					Source:  source,
					Domain:  domain,
					Content: text,
				})
				if err != nil {
					return fmt.Errorf("ingest text: %w", err)
				}
				if format == cli.OutputJSON {
					return cli.WriteJSON(cmd.OutOrStdout(), map[string]interface{}{"parent_ids": ids})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d parent document(s) from text\n", len(ids))
				return nil
			}

			report, err := components.Ingester.IngestPaths(ctx, args)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			logger.Debug("Ingest finished", zap.Any("report", report))
			if format == cli.OutputJSON {
				return cli.WriteJSON(cmd.OutOrStdout(), report)
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"Ingested %d file(s): %d parent document(s), %d chunk(s); %d unchanged, %d failed\n",
				report.Files, report.Parents, report.Chunks, report.Skipped, report.Failed)
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", "text", "output format: text or json")
	cmd.Flags().StringVar(&text, "text", "", "ingest this text instead of files")
	cmd.Flags().StringVar(&source, "source", "", "source name for --text (replaces earlier text with the same source)")
	cmd.Flags().StringVar(&domain, "domain", "", "domain for --text (default from domain rules)")
	return cmd
}

func newDeleteCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <source>",
		Short: "Delete every document ingested from a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, logger, err := g.setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			ctx := context.Background()
			components, err := initializeComponents(ctx, cfg, logger, componentSet{})
			if err != nil {
				return err
			}
			defer components.Close()

			source := args[0]
			if _, statErr := os.Stat(source); statErr == nil {
				source, _ = filepath.Abs(source)
			}
			if err := components.Ingester.DeleteSource(ctx, source); err != nil {
				return fmt.Errorf("deletion failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Source deleted: %s\n", source)
			return nil
		},
	}
}
