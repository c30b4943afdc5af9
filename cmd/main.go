package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ksred/job-tracker/internal/config"
	"github.com/ksred/job-tracker/internal/database"
	"github.com/ksred/job-tracker/internal/database/migrations"
	"github.com/ksred/job-tracker/internal/mcp"
	"github.com/ksred/job-tracker/internal/services"
	"github.com/ksred/job-tracker/internal/utils"
	"github.com/rs/zerolog"
)

const version = "v1.0.0"

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
	logger.Info().Str("version", version).Msg("Starting Job Tracker MCP server")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	// Run migrations
	if _, err := migrations.Apply(ctx, db.DB(), logger); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	jobService := services.NewJobService(db.DB(), logger)

	// Create and configure MCP server
	mcpServer, err := mcp.NewServer(jobService, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create MCP server")
	}

	// Start MCP server in a goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		logger.Info().Msg("Starting MCP server on stdio")
		if err := mcpServer.Serve(ctx); err != nil {
			serverErrChan <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-serverErrChan:
		logger.Error().Err(err).Msg("MCP server error")
	}

	logger.Info().Msg("Starting graceful shutdown")
	cancel()

	logger.Info().Msg("Shutdown complete")
}

// loadConfiguration loads the application configuration
func loadConfiguration(configPath string) (*config.Config, error) {
	return config.LoadConfigOrDefault(configPath)
}

// setupLogging configures the application logger. stdout carries the MCP
// protocol, so logs go to a file.
func setupLogging(cfg *config.Config) zerolog.Logger {
	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			homeDir = "."
		}
		logFile = filepath.Join(homeDir, ".config", "job-tracker", "logs", "job-tracker-mcp.log")
	}

	logConfig := utils.LoggerConfig{
		Level:      cfg.Server.LogLevel,
		Pretty:     false,
		CallerInfo: cfg.Server.Debug,
		LogFile:    logFile,
	}

	utils.SetupGlobalLogger(logConfig)
	return utils.NewLogger(logConfig)
}

// connectToDatabase establishes database connection
func connectToDatabase(cfg *config.Config, logger zerolog.Logger) (*database.Database, error) {
	logger.Info().Str("path", cfg.DatabasePath()).Msg("Connecting to SQLite database")

	db := database.NewDatabase(map[string]interface{}{
		"path":            cfg.DatabasePath(),
		"busy_timeout":    cfg.Database.BusyTimeout,
		"connect_retries": cfg.Database.ConnectRetries,
		"log_level":       "silent", // gorm must not write to the JSON-RPC stream
	})

	if err := db.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.Health(ctx); err != nil {
		return nil, fmt.Errorf("database health check failed: %w", err)
	}

	logger.Info().Msg("Successfully connected to database")
	return db, nil
}
