package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/draftwire/llmstream/internal/config"
	"github.com/draftwire/llmstream/internal/debug"
	"github.com/draftwire/llmstream/internal/server"
	"github.com/draftwire/llmstream/internal/storage/sqlite"
	"github.com/draftwire/llmstream/internal/telemetry"
	"github.com/draftwire/llmstream/pkg/llmstream"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	shutdown, err := telemetry.InitTracer("llmstream", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	svc := llmstream.NewService(
		llmstream.Credentials{APIKey: cfg.OpenAI.APIKey, BaseURL: cfg.OpenAI.BaseURL},
		llmstream.Credentials{APIKey: cfg.Anthropic.APIKey, BaseURL: cfg.Anthropic.BaseURL},
	)
	svc.Logger = logger

	// Debug mode is decided once here and threaded in; the streaming core
	// never reads it ambiently.
	if cfg.Debug.Enabled {
		writer, err := debug.NewWriter(cfg.Debug.Dir)
		if err != nil {
			log.Fatalf("Failed to create debug writer: %v", err)
		}
		svc.Debug = writer
		logger.Info("debug artifacts enabled", slog.String("dir", writer.Dir()))
	}

	if cfg.Transcript.Path != "" {
		store, err := sqlite.Open(cfg.Transcript.Path)
		if err != nil {
			log.Fatalf("Failed to open transcript store: %v", err)
		}
		defer store.Close()
		svc.Recorder = store
		logger.Info("transcript recording enabled", slog.String("path", cfg.Transcript.Path))
	}

	srv := server.New(cfg.Server.Port, logger, svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *configPath != "" {
		if err := config.Watch(ctx, *configPath, func(next *config.Config) {
			// Credential rotation without restart; structural settings
			// still need one.
			svc.UpdateCredentials(
				llmstream.Credentials{APIKey: next.OpenAI.APIKey, BaseURL: next.OpenAI.BaseURL},
				llmstream.Credentials{APIKey: next.Anthropic.APIKey, BaseURL: next.Anthropic.BaseURL},
			)
		}); err != nil {
			logger.Error("config watch unavailable", slog.String("error", err.Error()))
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	case <-sigCh:
		logger.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
