package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/satoshistrike/presale/service/config"
	"github.com/satoshistrike/presale/service/events"
	"github.com/satoshistrike/presale/service/metrics"
	"github.com/satoshistrike/presale/service/swap"
)

// SwapBuilder builds partially signed swap transactions.
// Implemented by *swap.Builder; mocked in handler tests.
type SwapBuilder interface {
	Build(ctx context.Context, req swap.Request) (*swap.BuiltSwap, error)
}

// Server represents the HTTP server for the presale service.
type Server struct {
	addr      string
	cfg       *config.Config
	builder   SwapBuilder
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	server    *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The publisher is optional - if nil, swap events won't be published.
// The metrics is optional - if nil, the metrics endpoint won't be available.
func New(addr string, cfg *config.Config, builder SwapBuilder, publisher events.Publisher, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		addr:      addr,
		cfg:       cfg,
		builder:   builder,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// Swap transaction route
	createHandler := handleCreateTransaction(s.builder, s.publisher, s.logger)
	mux.Handle("POST /create-transaction",
		metrics.HTTPMetricsMiddleware(s.metrics, "/create-transaction")(createHandler))

	// Public sale parameters for widget bootstrap
	mux.Handle("GET /sale", handleSaleInfo(s.cfg, s.logger))

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint (if metrics collector is configured)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	// Wrap mux with CORS middleware; the widget is served from a different
	// origin than this API (and is itself embedded in a hosting page).
	handler := corsMiddleware(mux)

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	// Close the event publisher first
	if s.publisher != nil {
		s.publisher.Close()
	}

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Set CORS headers for all requests
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		// Handle preflight OPTIONS requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		// Pass through to next handler
		next.ServeHTTP(w, r)
	})
}
