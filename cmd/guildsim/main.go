// Package main runs the guild simulator: the roster service behind its HTTP API,
// with periodic saves to the configured store.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/guildmaster/internal/app"
	"github.com/cory-johannsen/guildmaster/internal/config"
	"github.com/cory-johannsen/guildmaster/internal/observability"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, _, err := observability.NewLogger(cfg.Logging, "guildsim")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting guild simulator",
		zap.String("storage", cfg.Storage.Driver),
		zap.String("http_addr", cfg.HTTP.Addr()),
	)

	a, cleanup, err := app.Initialize(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("initializing", zap.Error(err))
	}
	defer cleanup()

	logger.Info("guild simulator initialized", zap.Duration("startup", time.Since(start)))

	if err := a.Run(ctx); err != nil {
		logger.Error("server error", zap.Error(err))
		cleanup()
		logger.Sync()
		log.Fatalf("server error: %v", err)
	}
}
