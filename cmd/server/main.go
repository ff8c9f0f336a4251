// Package main is the entry point for the Rilmas server.
//
// main stays small:
//  1. load configuration (flag → YAML file, RILMAS_* env vars, defaults)
//  2. build the logger
//  3. hand both to internal/server and block until a stop signal
//
// Everything else lives in internal/.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sakif/rilmas/internal/config"
	"github.com/sakif/rilmas/internal/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("RILMAS_CONFIG"), "path to a YAML config file (optional)")
	flag.Parse()

	// Bootstrap logger for config errors; replaced once the level is known.
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	level, err := cfg.LogLevel()
	if err != nil {
		logger.Error("invalid log level", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Ctrl+C and SIGTERM cancel ctx; Start then shuts down gracefully.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}
