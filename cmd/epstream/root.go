package main

import (
	"strings"
	"sync"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"epstream/pkg/config"
	"epstream/pkg/initialization"
)

type commandContext struct {
	fs         afero.Fs
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		path := strings.TrimSpace(*c.configFlag)
		var cfg *config.Config
		var err error
		if path == "" {
			cfg, err = config.Load(c.fs)
		} else {
			cfg, err = config.LoadFrom(c.fs, path)
		}
		if err != nil {
			c.configErr = err
			return
		}
		initialization.ConfigureLogging(cfg)
		c.config = cfg
	})
	return c.config, c.configErr
}

func newRootCommand(fs afero.Fs) *cobra.Command {
	var configFlag string
	ctx := &commandContext{fs: fs, configFlag: &configFlag}

	rootCmd := &cobra.Command{
		Use:           "epstream",
		Short:         "Eporner Stremio addon with Real-Debrid support",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, ctx)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (default: config.json in the data directory)")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newUnrestrictCommand(ctx))
	rootCmd.AddCommand(newStreamsCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
