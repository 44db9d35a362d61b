package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"epstream/pkg/debrid"
	"epstream/pkg/logger"
)

func newUnrestrictCommand(ctx *commandContext) *cobra.Command {
	var magnet string
	var token string
	var attempts int

	cmd := &cobra.Command{
		Use:   "unrestrict",
		Short: "Resolve a magnet to a direct URL through Real-Debrid",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			policy := cfg.RetryPolicy()
			if attempts > 0 {
				policy.MaxAttempts = attempts
			}

			pipeline := debrid.NewPipeline(debrid.NewClient(cfg.RealDebridAPIURL, &http.Client{}), cfg.RequestTimeout())
			task := pipeline.UnrestrictWithRetry(cmd.Context(), strings.TrimSpace(magnet), strings.TrimSpace(token), policy)

			if err := writeJSON(cmd.OutOrStdout(), task); err != nil {
				return err
			}
			if task.Failure != nil {
				f := task.Failure
				logger.Warn("Unrestriction failed", "step", f.Step.String(), "task_id", f.TaskID, "kind", string(f.Kind), "attempts", task.Attempt)
				return fmt.Errorf("unrestriction failed: %w", f)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&magnet, "magnet", "", "Magnet URI to resolve")
	cmd.Flags().StringVar(&token, "token", "", "Real-Debrid API token")
	cmd.Flags().IntVar(&attempts, "attempts", 0, "Override max_polling_attempts")
	_ = cmd.MarkFlagRequired("magnet")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}
