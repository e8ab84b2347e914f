package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/satoshistrike/presale/service/config"
	"github.com/satoshistrike/presale/service/events"
	"github.com/satoshistrike/presale/service/metrics"
	"github.com/satoshistrike/presale/service/server"
	"github.com/satoshistrike/presale/service/solana"
	"github.com/satoshistrike/presale/service/swap"
)

func main() {
	// Load and validate configuration from environment
	// This fails fast if any required config is missing or invalid
	cfg := config.MustLoad()

	// Setup structured logging
	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
		"treasury", cfg.TreasuryAddress().String(),
	)

	// Prometheus collectors for the whole service
	m := metrics.NewMetrics(prometheus.DefaultRegisterer)

	// Initialize Solana RPC client
	// Note: For premium RPC endpoints, include API key in the URL
	solanaRPC := solana.NewRPCClient(cfg.SolanaRPCURL)
	solanaClient := solana.NewClient(solanaRPC, cfg.SolanaRPCURL, cfg.RPCRateLimit, m, logger)
	logger.Info("initialized solana RPC client", "url", cfg.SolanaRPCURL)

	// Swap transaction builder, holding the treasury key
	builder := swap.NewBuilder(solanaClient, cfg, m, logger)

	// Optional NATS JetStream publisher for swap events
	var publisher events.Publisher
	if cfg.NATSURL != "" {
		p, err := events.NewPublisher(cfg.NATSURL, m, logger)
		if err != nil {
			logger.Error("failed to initialize NATS publisher", "error", err)
			os.Exit(1)
		}
		publisher = p
	} else {
		logger.Info("NATS_URL not set, swap events disabled")
	}

	// Initialize HTTP server
	httpServer := server.New(cfg.ServerAddr, cfg, builder, publisher, m, logger)

	// Start HTTP server in background
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	// Wait for shutdown signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		// Graceful shutdown with timeout
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		logger.Info("server shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
