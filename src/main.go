package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"motifcore/src/app"
	"motifcore/src/config"
	"motifcore/src/version"
)

func main() {
	initializeLogging()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	motifConfig, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	build := version.GetBuildInfo()
	slog.Info("Ramping up motifcore", "version", build["version"], "commit", build["commit"])

	motif, err := app.BuildFromConfig(motifConfig, slog.Default())
	if err != nil {
		slog.Error("Failed to build app", "error", err)
		os.Exit(1)
	}

	done := make(chan error, 1)
	go func() { done <- motif.Run(ctx) }()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
		slog.Info("Shutting down...")
		cancel()
		err = <-done
	case err = <-done:
	}
	if err != nil {
		slog.Error("motifcore stopped", "error", err)
		os.Exit(1)
	}
}

func initializeLogging() {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}
	switch strings.ToLower(logLevel) {
	case "debug":
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout,
			&slog.HandlerOptions{Level: slog.LevelDebug, AddSource: true})))
	case "warn":
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout,
			&slog.HandlerOptions{Level: slog.LevelWarn})))
	default:
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout,
			&slog.HandlerOptions{Level: slog.LevelInfo})))
	}
}
