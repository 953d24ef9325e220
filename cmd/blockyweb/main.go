package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"blockyweb/internal/actions"
	"blockyweb/internal/allowlist"
	"blockyweb/internal/blocky"
	"blockyweb/internal/config"
	"blockyweb/internal/logging"
	"blockyweb/internal/metrics"
	"blockyweb/internal/server"

	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	coll := metrics.New()

	client := blocky.NewClient(cfg.BlockyAPIURL, cfg.RequestTimeout)
	client.Observer = coll

	dispatcher := actions.NewDispatcher(client, allowlist.New(cfg.BlockyAllowedPath), logger.Named("actions"))
	dispatcher.Recorder = coll

	app := server.New(server.Deps{
		Config:     cfg,
		Logger:     logger.Named("http"),
		Status:     client,
		Dispatcher: dispatcher,
		Metrics:    coll,
		Version:    version,
	})

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Info("shutting down")
		_ = app.Shutdown()
	}()

	logger.Info("blockyweb starting",
		zap.String("version", version),
		zap.String("listen", cfg.Listen),
		zap.String("blocky_api_url", cfg.BlockyAPIURL),
		zap.String("host", cfg.Host),
	)
	if err := app.Listen(cfg.Listen); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
