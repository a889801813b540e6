package main

import (
	"fmt"
	"os"

	"github.com/carrent-dev/carrent/internal/config"
	"github.com/carrent-dev/carrent/internal/logger"
	"github.com/carrent-dev/carrent/internal/server"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.Init("carrent-gateway", cfg.Logging.Level, cfg.Logging.Format)

	if cfg.Session.SecretIsTemp {
		log.Warn().Msg("SESSION_SECRET is not set; using a temporary secret, sessions will not survive a restart")
	}

	// Create server
	srv, err := server.New(cfg, log, version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	log.Info().
		Str("version", version).
		Str("backend", cfg.Backend.URL).
		Msg("Starting CarRent gateway...")

	// Start HTTP server (this blocks)
	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("Server failed to start")
	}
}
