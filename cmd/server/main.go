// Package main is the entry point for the todo manager daemon.
//
// It reads configuration, builds the logger, opens the slot store and hands
// everything to internal/server. All behaviour lives in internal/.
//
// Usage:
//
//	server [-config path/to/config.yaml]
//
// Settings can also come from a .env file or TODO_* environment variables,
// e.g. TODO_PORT=9000 TODO_STORE=memory.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/sakif/todo-manager/internal/config"
	"github.com/sakif/todo-manager/internal/server"
)

func main() {
	configPath := flag.String("config", "config.yaml", "optional YAML config file")
	flag.Parse()

	// === 1. CONFIGURATION ===
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. LOGGING ===
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Level(),
	}))
	slog.SetDefault(logger)

	// === 3. STORE ===
	store, err := server.OpenStore(cfg, logger)
	if err != nil {
		logger.Error("failed to open store",
			slog.String("store", cfg.Store),
			slog.String("path", cfg.DBPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// === 4. SERVER ===
	srv, err := server.New(cfg, store, logger)
	if err != nil {
		store.Close()
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM and closes the store on the way out.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
