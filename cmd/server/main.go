package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ocx/fairgov/internal/config"
	"github.com/ocx/fairgov/internal/server"
)

func main() {
	// FAIRGOV_CONFIG names an optional YAML file; .env and FAIRGOV_* variables
	// are applied on top.
	cfg, err := config.Load(os.Getenv("FAIRGOV_CONFIG"), ".env")
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger := server.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to start governance service", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		logger.Error("Server stopped with error", "error", err)
		app.Close()
		os.Exit(1)
	}
	logger.Info("Server stopped")
}
