package main

import (
	"fmt"
	"os"

	"github.com/carrent-dev/carrent/internal/authapi"
	"github.com/carrent-dev/carrent/internal/config"
	"github.com/carrent-dev/carrent/internal/logger"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init("carrent-authapi", cfg.Logging.Level, cfg.Logging.Format)

	srv, err := authapi.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create credential service")
	}

	log.Info().
		Str("version", version).
		Str("database", cfg.AuthAPI.DatabaseURL).
		Msg("Starting CarRent credential service...")

	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("Credential service failed")
	}
}
