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

	"github.com/tjfontaine/slack-mcp-gateway/internal/audit"
	"github.com/tjfontaine/slack-mcp-gateway/internal/config"
	"github.com/tjfontaine/slack-mcp-gateway/internal/httpserver"
	"github.com/tjfontaine/slack-mcp-gateway/internal/mcpserver"
	"github.com/tjfontaine/slack-mcp-gateway/internal/telemetry"
	"github.com/tjfontaine/slack-mcp-gateway/internal/workspace"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Logs go to stderr unconditionally: with the stdio transport,
	// stdout belongs to the protocol.
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init(cfg.Server.Name, cfg.Server.Version, logger)
		if err != nil {
			log.Fatalf("Failed to initialize tracer: %v", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
			}
		}()
	}

	dir := cfg.Workspace.Dir
	if dir == "" {
		dir, err = workspace.DefaultDir()
		if err != nil {
			log.Fatalf("Failed to resolve workspace directory: %v", err)
		}
	}
	store := workspace.NewStore(dir, logger)

	// Resolve the active workspace up front so a broken setup fails at
	// startup instead of on the first tool call.
	active, err := store.Active()
	if err != nil {
		log.Fatalf("Failed to resolve active workspace: %v", err)
	}
	logger.Info("active workspace resolved", slog.String("workspace", active))

	var recorder *audit.Recorder
	if cfg.Audit.Path != "" {
		recorder, err = audit.NewRecorder(cfg.Audit.Path, logger)
		if err != nil {
			log.Fatalf("Failed to open audit log: %v", err)
		}
		defer recorder.Close()
	}

	srv := mcpserver.New(cfg, store, recorder, logger)

	switch cfg.Server.Transport {
	case "stdio":
		logger.Info("serving over stdio")
		if err := srv.ServeStdio(); err != nil {
			log.Fatalf("Server failed: %v", err)
		}

	case "http":
		httpSrv := httpserver.New(cfg, srv.MCP(), logger)

		errCh := make(chan error, 1)
		go func() { errCh <- httpSrv.Start() }()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			if err != nil {
				log.Fatalf("Server failed: %v", err)
			}
		case sig := <-sigCh:
			logger.Info("shutdown signal received", slog.String("signal", sig.String()))
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				logger.Error("shutdown error", slog.String("error", err.Error()))
				os.Exit(1)
			}
		}

	default:
		log.Fatalf("Unknown transport %q (want stdio or http)", cfg.Server.Transport)
	}

	logger.Info("server stopped")
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
