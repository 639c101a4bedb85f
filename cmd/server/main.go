// Package main is the entry point for the vlog site server.
//
// MAIN PACKAGE IN GO:
// The main package should be kept minimal. Its job is to:
//  1. Read configuration (internal/config, from environment variables)
//  2. Create the logger
//  3. Build and start the server
//
// All actual logic lives in imported packages (internal/server,
// internal/service, ...), which keeps them testable.
//
// WHY cmd/server/?
// The cmd/ directory holds executable entry points. This project has two:
// cmd/server and cmd/importer.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/sakif/vlogsite/internal/config"
	"github.com/sakif/vlogsite/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if cfg.SessionSecretGenerated {
		logger.Warn("SESSION_SECRET not set, using a random secret; sessions will not survive a restart")
	}
	if !cfg.GoogleEnabled() {
		logger.Warn("GOOGLE_CLIENT_ID not set, Google sign-in is disabled")
	}

	// The context outlives startup: it also bounds the background refresh of
	// Google's signing keys, which Close stops.
	srv, err := server.New(context.Background(), cfg, logger, server.Options{})
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// newLogger builds the process logger. Level and format were validated by
// config.Load.
func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
