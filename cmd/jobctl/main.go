package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ksred/job-tracker/internal/client"
	"github.com/ksred/job-tracker/internal/config"
	"github.com/ksred/job-tracker/internal/utils"
)

var (
	configPath string
	apiURL     string
	timeout    time.Duration
	jsonOutput bool
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "jobctl",
		Short:         "Command line client for the Job Tracker API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "base URL of the API server (overrides configuration)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "per-request timeout (overrides configuration)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print raw JSON instead of a table")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log requests and retries to stderr")

	rootCmd.AddCommand(
		newListCmd(),
		newSearchCmd(),
		newAddCmd(),
		newUpdateStatusCmd(),
		newDeleteCmd(),
		newStatsCmd(),
		newStatusCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newAPI builds the HTTP client from configuration and global flags
func newAPI() (*client.API, zerolog.Logger) {
	cfg := config.NewDefault()
	if loaded, err := config.LoadConfig(configPath); err == nil {
		cfg = loaded
	}

	baseURL := cfg.Client.BaseURL
	if apiURL != "" {
		baseURL = apiURL
	}
	requestTimeout := cfg.Client.Timeout
	if timeout > 0 {
		requestTimeout = timeout
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	logger := utils.NewLogger(utils.LoggerConfig{Level: level, Pretty: true})

	return client.NewAPI(baseURL, requestTimeout, logger), logger
}

// newStore returns a store loaded with the current job list
func newStore(ctx context.Context) (*client.Store, error) {
	api, logger := newAPI()
	store := client.NewStore(api, logger)
	if err := store.Refresh(ctx); err != nil {
		return nil, err
	}
	return store, nil
}
