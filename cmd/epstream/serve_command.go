package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"epstream/pkg/api"
	"epstream/pkg/initialization"
	"epstream/pkg/logger"
	"epstream/pkg/stremio"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the addon HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, ctx)
		},
	}
}

func runServe(cmd *cobra.Command, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger.Info("Starting epstream", "version", Version)

	if err := stremio.CheckPort(cfg.AddonPort); err != nil {
		return err
	}

	comp := initialization.Build(cfg, Version)

	apiServer := api.NewServer(cfg, Version, comp.Catalog)
	defer apiServer.Close()
	comp.Stremio.SetAPIHandler(apiServer.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.AddonPort),
		Handler:           comp.Stremio.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Stremio manifest URL", "url", cfg.AddonBaseURL+"/manifest.json")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-cmd.Context().Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
