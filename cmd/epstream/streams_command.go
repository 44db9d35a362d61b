package main

import (
	"github.com/samber/mo"
	"github.com/spf13/cobra"

	"epstream/pkg/initialization"
	"epstream/pkg/stremio"
)

func newStreamsCommand(ctx *commandContext) *cobra.Command {
	var magnet string
	var token string

	cmd := &cobra.Command{
		Use:   "streams <video-id>",
		Short: "Print the stream list the addon would return for a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			comp := initialization.Build(cfg, Version)

			streams, err := comp.Stremio.Streams(cmd.Context(), args[0], optional(magnet), optional(token))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stremio.StreamResponse{Streams: streams})
		},
	}

	cmd.Flags().StringVar(&magnet, "magnet", "", "Magnet URI for a premium stream")
	cmd.Flags().StringVar(&token, "token", "", "Real-Debrid API token")
	return cmd
}

func optional(v string) mo.Option[string] {
	if v == "" {
		return mo.None[string]()
	}
	return mo.Some(v)
}
