package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/SvetozarP/finance-tracker-server/internal/config"
	"github.com/SvetozarP/finance-tracker-server/internal/errorreporting"
	"github.com/SvetozarP/finance-tracker-server/internal/logger"
	"github.com/SvetozarP/finance-tracker-server/internal/secrets"
	"github.com/SvetozarP/finance-tracker-server/internal/server"
	"github.com/SvetozarP/finance-tracker-server/internal/store"
	"github.com/SvetozarP/finance-tracker-server/internal/tracing"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	cfg := config.Load()

	logger.Init(cfg.LogLevel)
	logger.Info("Initializing finance tracker", "version", cfg.SentryRelease, "log_level", cfg.LogLevel)

	if err := secrets.RequireEnv("DATABASE_URL"); err != nil {
		logger.Error("Missing required configuration", "error", err)
		log.Fatalf("Missing required configuration: %v", err)
	}

	if err := errorreporting.Init(cfg.SentryEnvironment); err != nil {
		logger.Warn("Failed to initialize error reporting", "error", err)
	} else if errorreporting.IsSentryEnabled() {
		logger.Info("Error reporting initialized", "environment", cfg.SentryEnvironment)
		defer func() {
			logger.Info("Flushing error reports...")
			errorreporting.Flush(2 * time.Second)
		}()
	}

	shutdownTracing, err := tracing.Init("finance-tracker-server", cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracing", "error", err)
	} else if cfg.OTELEnabled {
		logger.Info("Tracing initialized", "endpoint", cfg.OTELEndpoint, "sample_rate", cfg.OTELSampleRate)
		defer func() {
			logger.Info("Shutting down tracer...")
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Error("Failed to shutdown tracer", "error", err)
			}
		}()
	}

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database",
			"url", secrets.MaskURL(cfg.DatabaseURL), "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := st.EnsureSchema(ctx); err != nil {
		logger.Error("Failed to apply schema", "error", err)
		log.Fatalf("Failed to apply schema: %v", err)
	}

	srv, err := server.New(cfg, st)
	if err != nil {
		logger.Error("Failed to assemble server", "error", err)
		log.Fatalf("Failed to assemble server: %v", err)
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("Received shutdown signal", "signal", sig.String())
		cancel()
	}()

	if err := srv.Start(ctx); err != nil {
		logger.Error("Server exited", "error", err)
		log.Fatalf("Server exited: %v", err)
	}
	logger.Info("Server stopped")
}
