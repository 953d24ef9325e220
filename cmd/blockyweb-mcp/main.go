package main

import (
	"log"

	"blockyweb/internal/actions"
	"blockyweb/internal/allowlist"
	"blockyweb/internal/blocky"
	"blockyweb/internal/config"
	"blockyweb/internal/logging"
	mcptools "blockyweb/internal/mcp"

	"github.com/mark3labs/mcp-go/server"
)

var version = "dev"

func main() {
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// stdout carries the protocol. zap logs to stderr.
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	client := blocky.NewClient(cfg.BlockyAPIURL, cfg.RequestTimeout)
	dispatcher := actions.NewDispatcher(client, allowlist.New(cfg.BlockyAllowedPath), logger.Named("actions"))

	s := server.NewMCPServer(
		"blockyweb",
		version,
		server.WithToolCapabilities(true),
	)

	mcptools.RegisterTools(s, dispatcher, client)

	if err := server.ServeStdio(s); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
