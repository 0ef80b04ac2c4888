package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/markhive/markhive/internal/logger"
	"github.com/markhive/markhive/pkg/api"
	"github.com/markhive/markhive/pkg/config"
	"github.com/markhive/markhive/pkg/convert"
	"github.com/markhive/markhive/pkg/ingest"
	"github.com/markhive/markhive/pkg/metrics"
	"github.com/markhive/markhive/pkg/metrics/prometheus"
	"github.com/markhive/markhive/pkg/search"
	"github.com/markhive/markhive/pkg/store"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the markhive server",
	Long: `Start the markhive API server with the specified configuration.

The server exposes the ingestion, search, and cleanup endpoints and runs
until interrupted.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/markhive/config.yaml.

Examples:
  # Start with default config
  markhive start

  # Start with custom config file
  markhive start --config /etc/markhive/config.yaml

  # Start with environment variable overrides
  MARKHIVE_LOGGING_LEVEL=DEBUG markhive start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Println("Markhive - Local document indexing and search")
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))

	// Metrics registry must exist before any collector is constructed
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	st, err := store.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Store close error", "error", err)
		}
	}()
	logger.Info("Store initialized", "type", cfg.Database.Type)

	convert.Bootstrap(cfg.ConvertOptions())

	registry := ingest.NewRegistry(
		cfg.Ingest.SessionHistoryCapacity,
		time.Duration(cfg.Ingest.SessionGraceSeconds)*time.Second,
	)
	coordinator := ingest.NewCoordinator(st, registry, cfg.IngestOptions(), prometheus.NewIngestMetrics())

	apiServer := api.NewServer(cfg.API, api.Deps{
		Store:       st,
		Coordinator: coordinator,
		Search:      search.NewService(st),
		FileTypes:   fileTypeMap(cfg),
		HTTPMetrics: prometheus.NewHTTPMetrics(),
	})
	logger.Info("API server configured", "port", apiServer.Port())

	metricsServer := metrics.NewServer(cfg.Metrics.Port)
	if metricsServer != nil {
		logger.Info("Metrics enabled", "port", metricsServer.Port())
	} else {
		logger.Info("Metrics collection disabled")
	}

	// Run servers until the context is cancelled
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return apiServer.Start(gctx)
	})
	if metricsServer != nil {
		g.Go(func() error {
			return metricsServer.Start(gctx)
		})
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- g.Wait()
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		// Cancel active ingestion sessions so they persist their cursors
		if cancelled := registry.CancelAll(); len(cancelled) > 0 {
			logger.Info("Cancelled active sessions", "count", len(cancelled))
		}

		shutdownTimer := time.NewTimer(cfg.ShutdownTimeout)
		defer shutdownTimer.Stop()
		select {
		case err := <-serverDone:
			if err != nil {
				logger.Error("Server shutdown error", "error", err)
				return err
			}
			logger.Info("Server stopped gracefully")
		case <-shutdownTimer.C:
			logger.Error("Shutdown timed out", "timeout", cfg.ShutdownTimeout)
			return fmt.Errorf("shutdown timed out after %s", cfg.ShutdownTimeout)
		}

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Server error", "error", err)
			return err
		}
		logger.Info("Server stopped")
	}

	return nil
}
