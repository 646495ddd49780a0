package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"

	"github.com/searchktools/pooled-server/app"
	"github.com/searchktools/pooled-server/config"
)

func main() {
	cfg, err := config.LoadWithUsage(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, config.ErrHelp) {
			return
		}
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := app.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	slog.SetDefault(logger)

	application, err := app.New(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	if err := application.Run(context.Background()); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}
