package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/watcher"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var noWatch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and watch the configured directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(g, noWatch)
		},
	}
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not watch directories")
	return cmd
}

func runServe(g *globalFlags, noWatch bool) error {
	cfg, configPath, logger, err := g.setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("Config loaded", zap.String("config_path", configPath), zap.Bool("debug", cfg.Debug || g.debug))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := initializeComponents(ctx, cfg, logger, componentSet{pipeline: true})
	if err != nil {
		return err
	}
	defer components.Close()

	var watchSvc server.WatchService
	if !noWatch {
		var dirty atomic.Bool
		w := watcher.New(cfg.Watch, components.Ingester,
			watcher.WithLogger(logger),
			watcher.WithProcessedHook(func(string, bool) { dirty.Store(true) }))
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
		go w.SyncExistingFiles()
		go flushLoop(ctx, &dirty, components, logger)
		watchSvc = w
	}

	srv := server.NewServer(
		components.Pipeline,
		components.Registry,
		components.Storage,
		components.Vectors,
		cfg,
		logger,
		watchSvc,
		configPath,
	)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

const flushInterval = 30 * time.Second

// flushLoop saves the vector index periodically while watched files keep changing.
func flushLoop(ctx context.Context, dirty *atomic.Bool, c *Components, logger *zap.Logger) {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !dirty.Swap(false) {
				continue
			}
			if err := c.Ingester.Flush(); err != nil {
				logger.Warn("Vector index save failed", zap.Error(err))
			}
		}
	}
}
