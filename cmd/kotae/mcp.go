package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hyperjump/kotae/internal/mcpserver"
)

func newMCPCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the ask, answer and propose_command tools over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, logger, err := g.setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			components, err := initializeComponents(ctx, cfg, logger, componentSet{pipeline: true})
			if err != nil {
				return err
			}
			defer components.Close()

			srv, err := mcpserver.New(components.Pipeline, components.Registry, version,
				mcpserver.WithLogger(logger),
				mcpserver.WithSources(components.Storage))
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}
}
