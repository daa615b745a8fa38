// Copyright (c) Microsoft. All rights reserved.

// Command agentsvc serves the agent conversation and knowledge APIs over HTTP.
//
// Usage:
//
//	export AZURE_FOUNDRY_PROJECT_ENDPOINT=https://<resource>.services.ai.azure.com/api/projects/<project>
//	export AZURE_FOUNDRY_DEPLOYMENT=gpt-4o
//	go run ./cmd/agentsvc                       # serves on :8080
//	go run ./cmd/agentsvc -init-vector-stores   # load configured vector stores first
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/microsoft/foundry-agents/go/internal/app"
	"github.com/microsoft/foundry-agents/go/internal/config"
)

const shutdownTimeout = 10 * time.Second

func main() {
	envFile := flag.String("env", ".env", "dotenv file to load (ignored if missing)")
	initStores := flag.Bool("init-vector-stores", false, "initialize the enabled vector stores before serving")
	flag.Parse()

	config.LoadEnv(*envFile)
	settings := config.LoadSettings()
	logger := app.NewLogger(settings, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, settings, logger, *initStores); err != nil {
		logger.Error("agent service stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, settings *config.Settings, logger *slog.Logger, initStores bool) error {
	a, err := app.New(ctx, settings, app.WithLogger(logger))
	if err != nil {
		return err
	}
	defer a.Close()

	if initStores {
		if err := initializeVectorStores(ctx, a, logger); err != nil {
			return err
		}
	}

	srv := a.HTTPServer()
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", settings.HTTPAddr, "backend", settings.Backend)
		errCh <- srv.Start(settings.HTTPAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func initializeVectorStores(ctx context.Context, a *app.App, logger *slog.Logger) error {
	if a.VectorStores == nil {
		logger.Warn("vector stores are not available on this backend", "backend", a.Settings.Backend)
		return nil
	}
	results, err := a.VectorStores.InitializeAll(ctx, a.AgentConfig.EnabledVectorStores())
	if err != nil {
		return err
	}
	for _, r := range results {
		logger.Info("vector store ready", "name", r.VectorStoreName, "id", r.VectorStoreID, "files", len(r.Files))
	}
	return nil
}
