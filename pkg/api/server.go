package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/markhive/markhive/internal/logger"
	"github.com/markhive/markhive/pkg/ingest"
	"github.com/markhive/markhive/pkg/metrics"
	"github.com/markhive/markhive/pkg/search"
	"github.com/markhive/markhive/pkg/store"
)

// Deps carries everything the API handlers need.
//
// Search may be nil, in which case /api/search returns 503. FileTypes is the
// configured extension-category map echoed by /api/config/file-types.
// HTTPMetrics may be nil to disable request metrics.
type Deps struct {
	Store       *store.GORMStore
	Coordinator *ingest.Coordinator
	Search      *search.Service
	FileTypes   map[string][]string
	HTTPMetrics metrics.HTTPMetrics
}

// Server provides the HTTP control surface for the indexer.
//
// Endpoints:
//   - POST /api/ingest: start an ingestion session
//   - GET /api/ingest/{id}/events: server-sent event stream
//   - GET /api/search: keyword search
//   - GET /health, /health/ready: probes
//
// The server supports graceful shutdown with configurable timeout.
type Server struct {
	server       *http.Server
	config       APIConfig
	shutdownOnce sync.Once
}

// NewServer creates a new API HTTP server.
//
// The server is created in a stopped state. Call Start() to begin serving requests.
//
// Defaults are applied here to ensure the server works correctly even when
// created directly (e.g., in tests). This is idempotent with the defaults
// applied during config loading.
func NewServer(config APIConfig, deps Deps) *Server {
	config.ApplyDefaults()

	router := NewRouter(deps)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return &Server{
		server: server,
		config: config,
	}
}

// Start starts the API HTTP server and blocks until the context is cancelled
// or an error occurs.
//
// When the context is cancelled, Start initiates graceful shutdown and returns.
func (s *Server) Start(ctx context.Context) error {
	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		logger.Info("API server listening", "port", s.config.Port)
		logger.Debug("API endpoints available",
			"health", fmt.Sprintf("http://localhost:%d/health", s.config.Port),
			"ingest", fmt.Sprintf("http://localhost:%d/api/ingest", s.config.Port),
			"search", fmt.Sprintf("http://localhost:%d/api/search", s.config.Port),
		)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
				// Context was cancelled, error is not needed
			}
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		logger.Info("API server shutdown signal received")
		// Create new context with timeout for graceful shutdown
		// Don't use the cancelled ctx as it would cause immediate shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop initiates graceful shutdown of the API server.
//
// Stop is safe to call multiple times and safe to call concurrently with Start().
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("API server shutdown initiated")

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("API server shutdown error: %w", err)
			logger.Error("API server shutdown error", "error", err)
		} else {
			logger.Info("API server stopped gracefully")
		}
	})
	return shutdownErr
}

// Port returns the TCP port the server is listening on.
func (s *Server) Port() int {
	return s.config.Port
}
