package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/pkg/utils"
)

const (
	defaultConfigPath = "/usr/local/etc/kotae/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	debug      bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "kotae",
		Short:         "Grounded answers and validated command proposals over your documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", defaultConfigPath, "config file path")
	root.PersistentFlags().BoolVar(&g.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(g),
		newIngestCmd(g),
		newDeleteCmd(g),
		newQuestionCmd(g, questionAsk),
		newQuestionCmd(g, questionAnswer),
		newQuestionCmd(g, questionCommand),
		newStatusCmd(g),
		newCommandsCmd(g),
		newWatchCmd(),
		newMCPCmd(g),
		newVersionCmd(),
	)
	return root
}

// loadConfig loads config from path. When path is the default and config.yaml exists in the
// current directory, that file is used instead. A missing default file yields the built-in
// defaults. Returns the config and the path it was loaded from ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				cfg, err := config.Load(fallback)
				if err != nil {
					return nil, "", err
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// setup loads the config and builds the logger.
func (g *globalFlags) setup() (*config.Config, string, *zap.Logger, error) {
	cfg, path, err := loadConfig(g.configPath)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug || g.debug)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, path, logger, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kotae version %s\n", version)
		},
	}
}
