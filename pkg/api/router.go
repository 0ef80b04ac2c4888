package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/markhive/markhive/internal/logger"
	"github.com/markhive/markhive/pkg/api/handlers"
	"github.com/markhive/markhive/pkg/metrics"
)

// NewRouter creates and configures the chi router with all middleware and routes.
//
// The router is configured with:
//   - Request ID middleware for request tracking
//   - Real IP extraction for proper client identification
//   - Custom request logging using the internal logger
//   - Optional Prometheus request metrics
//   - Panic recovery to prevent server crashes
//   - Request timeout to prevent hung requests (event streams excluded)
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	if deps.HTTPMetrics != nil {
		r.Use(requestMetrics(deps.HTTPMetrics))
	}
	r.Use(middleware.Recoverer)

	ingestHandler := handlers.NewIngestHandler(deps.Coordinator)
	documentsHandler := handlers.NewDocumentsHandler(deps.Store, deps.Coordinator)
	cleanupHandler := handlers.NewCleanupHandler(deps.Store)
	searchHandler := handlers.NewSearchHandler(deps.Search)
	configHandler := handlers.NewConfigHandler(deps.FileTypes)
	healthHandler := handlers.NewHealthHandler(deps.Store)

	r.Route("/api", func(r chi.Router) {
		// The event stream stays open for the whole session; everything
		// else gets the standard timeout.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Post("/ingest", ingestHandler.Start)
			r.Post("/ingest/{id}/cancel", ingestHandler.Cancel)
			r.Post("/ingest/cancel-all", ingestHandler.CancelAll)
			r.Get("/sessions", ingestHandler.Sessions)
			r.Get("/sessions/{id}", ingestHandler.SessionHistory)

			r.Get("/documents/{id}", documentsHandler.Get)
			r.Post("/documents/{id}/retry", documentsHandler.Retry)

			r.Get("/cleanup/orphans", cleanupHandler.Orphans)
			r.Post("/cleanup/delete", cleanupHandler.Delete)

			r.Get("/search", searchHandler.Search)
			r.Get("/config/file-types", configHandler.FileTypes)
		})

		r.Get("/ingest/{id}/events", ingestHandler.Events)
	})

	// Health routes - unauthenticated
	r.Route("/health", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	// Root redirect to health for convenience
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}

// requestLogger is a custom middleware that logs requests using the internal logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)

		logger.Info("API request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", duration.String(),
		)
	})
}

// requestMetrics records request counts, latency, and in-flight gauge against
// the matched chi route pattern.
func requestMetrics(m metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.RecordRequestStart()
			defer m.RecordRequestEnd()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			m.RecordRequest(r.Method, route, ww.Status(), time.Since(start))
		})
	}
}
