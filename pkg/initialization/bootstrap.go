package initialization

import (
	"fmt"
	"net/http"

	"github.com/spf13/afero"

	"epstream/pkg/config"
	"epstream/pkg/debrid"
	"epstream/pkg/eporner"
	"epstream/pkg/logger"
	"epstream/pkg/paths"
	"epstream/pkg/quality"
	"epstream/pkg/stremio"
)

// InitializedComponents holds all the components initialized during bootstrap
type InitializedComponents struct {
	Config    *config.Config
	Eporner   *eporner.Client
	Catalog   *eporner.CachedSearcher
	Pipeline  *debrid.Pipeline
	Assembler *stremio.Assembler
	Stremio   *stremio.Server
}

// Bootstrap coordinates the application startup sequence
func Bootstrap(fs afero.Fs, version string) (*InitializedComponents, error) {
	// 1. Load configuration
	cfg, err := config.Load(fs)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	ConfigureLogging(cfg)

	// 2. Wire the resolution components
	return Build(cfg, version), nil
}

// ConfigureLogging applies the configured level and, when log_to_file is
// set, mirrors output into the daily file under the data directory.
func ConfigureLogging(cfg *config.Config) {
	logger.SetLevel(cfg.LogLevel)

	if cfg.LogToFile {
		dir := paths.GetDataDir()
		if err := logger.EnableFile(dir); err != nil {
			logger.Warn("Failed to enable log file", "dir", dir, "err", err)
		}
	}
}

// Build wires every component from an already validated configuration.
func Build(cfg *config.Config, version string) *InitializedComponents {
	epClient := eporner.NewClient(cfg.EpornerAPIURL, cfg.RequestTimeout())
	catalog := eporner.NewCachedSearcher(epClient, cfg.CatalogCacheSize, cfg.CatalogCacheTTL())
	logger.Info("Initialized Eporner client", "url", cfg.EpornerAPIURL, "catalog_cache_ttl", cfg.CatalogCacheTTL())

	// Deadlines come from the pipeline's per-call context, not the transport.
	rdClient := debrid.NewClient(cfg.RealDebridAPIURL, &http.Client{})
	pipeline := debrid.NewPipeline(rdClient, cfg.RequestTimeout())
	logger.Info("Initialized Real-Debrid pipeline",
		"url", cfg.RealDebridAPIURL,
		"request_timeout", cfg.RequestTimeout(),
		"max_attempts", cfg.MaxPollingAttempts,
		"poll_interval", cfg.PollInterval())

	selector := quality.NewSelector(cfg.QualityPreferenceOrder)
	assembler := stremio.NewAssembler(epClient, selector, pipeline, cfg.RetryPolicy(), cfg.EmbedBaseURL)

	server := stremio.NewServer(stremio.NewManifest(version), assembler, catalog, cfg.CatalogPageSize)

	return &InitializedComponents{
		Config:    cfg,
		Eporner:   epClient,
		Catalog:   catalog,
		Pipeline:  pipeline,
		Assembler: assembler,
		Stremio:   server,
	}
}
