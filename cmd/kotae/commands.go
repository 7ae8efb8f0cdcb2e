package main

import (
	"github.com/spf13/cobra"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/registry"
)

func newCommandsCmd(g *globalFlags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "commands",
		Short: "List the commands a proposal may contain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			cfg, _, err := loadConfig(g.configPath)
			if err != nil {
				return err
			}
			reg, err := registry.Load(cfg.Command.RegistryPath)
			if err != nil {
				return err
			}
			return cli.WriteCommands(cmd.OutOrStdout(), reg, format)
		},
	}
	cmd.Flags().StringVar(&output, "output", "text", "output format: text or json")
	return cmd
}
