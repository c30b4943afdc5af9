package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ksred/job-tracker/internal/api"
	"github.com/ksred/job-tracker/internal/config"
	"github.com/ksred/job-tracker/internal/database"
	"github.com/ksred/job-tracker/internal/database/migrations"
	"github.com/ksred/job-tracker/internal/services"
	"github.com/ksred/job-tracker/internal/utils"
	"github.com/rs/zerolog"

	// Import swagger docs
	_ "github.com/ksred/job-tracker/docs"
)

func main() {
	// Parse command line flags
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := loadConfiguration(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Set up logging
	logger := setupLogging(cfg)
	logger.Info().
		Str("version", api.Version).
		Str("environment", cfg.Server.Environment).
		Int("port", cfg.HTTP.Port).
		Msg("Starting Job Tracker HTTP API server")

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Connect to database
	db, err := connectToDatabase(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close database connection")
		}
	}()

	// Run migrations; a store we cannot bring up to date is not served
	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), time.Minute)
	version, err := migrations.Apply(migrateCtx, db.DB(), logger)
	migrateCancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}
	logger.Info().Int("schema_version", version).Msg("Database migrations completed")

	jobService := services.NewJobService(db.DB(), logger)

	// Create and start HTTP server
	server, err := api.NewServer(cfg, db, jobService, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create HTTP server")
	}

	// Start server in goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(cfg.HTTP.Port); err != nil {
			serverErrChan <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-serverErrChan:
		logger.Error().Err(err).Msg("HTTP server error")
	}

	// Graceful shutdown
	logger.Info().Msg("Starting graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Failed to gracefully shutdown HTTP server")
	}

	logger.Info().Msg("Shutdown complete")
}

// loadConfiguration loads configuration from file or environment
func loadConfiguration(configPath string) (*config.Config, error) {
	// A missing file still leaves environment variables applied
	return config.LoadConfigOrDefault(configPath)
}

// setupLogging configures the logger based on configuration
func setupLogging(cfg *config.Config) zerolog.Logger {
	logConfig := utils.ConfigForEnvironment(cfg.Server.Environment, cfg.Server.LogLevel)
	if cfg.Server.Debug {
		logConfig.Pretty = true
		logConfig.CallerInfo = true
	}
	// Only use file logging if explicitly requested
	logConfig.LogFile = os.Getenv("LOG_FILE")

	utils.SetupGlobalLogger(logConfig)
	return utils.NewLogger(logConfig)
}

// connectToDatabase opens the store and verifies it answers
func connectToDatabase(cfg *config.Config, logger zerolog.Logger) (*database.Database, error) {
	logger.Info().Str("path", cfg.DatabasePath()).Msg("Connecting to database")

	db := database.New(cfg)
	if err := db.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.Health(ctx); err != nil {
		return nil, fmt.Errorf("database health check failed: %w", err)
	}

	logger.Info().Msg("Database connection established")
	return db, nil
}
