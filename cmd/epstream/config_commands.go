package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"epstream/pkg/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if keys := config.GetEnvOverrideKeys(); len(keys) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "Overridden by environment: %s\n", strings.Join(keys, ", "))
			}
			return writeJSON(cmd.OutOrStdout(), cfg)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration valid (%s)\n", cfg.LoadedPath)
			return nil
		},
	})

	return configCmd
}
