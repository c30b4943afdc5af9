package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Values from .env never override the real environment
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName("config")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/job-tracker")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".job-tracker"))
		}
	}

	// Set defaults (these will be overridden by config file and env vars)
	setDefaults(v)

	v.SetEnvPrefix("JOBTRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)

	// Read configuration file (if exists)
	if err := v.ReadInConfig(); err != nil {
		// It's ok if config file doesn't exist, we have defaults and env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// RATE_LIMIT_WINDOW_MS carries a bare millisecond count
	if windowMS := os.Getenv("RATE_LIMIT_WINDOW_MS"); windowMS != "" {
		window, err := parseMillis(windowMS)
		if err != nil {
			return nil, fmt.Errorf("invalid RATE_LIMIT_WINDOW_MS: %w", err)
		}
		v.Set("rate_limit.window", window)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if config.Database.Path == "" {
		config.Database.Path = config.DatabasePath()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	defaults := NewDefault()

	// Database defaults. The path stays empty so it follows data_dir.
	v.SetDefault("database.data_dir", defaults.Database.DataDir)
	v.SetDefault("database.path", "")
	v.SetDefault("database.log_level", defaults.Database.LogLevel)
	v.SetDefault("database.busy_timeout", defaults.Database.BusyTimeout)
	v.SetDefault("database.connect_retries", defaults.Database.ConnectRetries)

	// Server defaults
	v.SetDefault("server.environment", defaults.Server.Environment)
	v.SetDefault("server.log_level", defaults.Server.LogLevel)
	v.SetDefault("server.debug", defaults.Server.Debug)

	// HTTP defaults
	v.SetDefault("http.port", defaults.HTTP.Port)
	v.SetDefault("http.allow_origins", defaults.HTTP.AllowOrigins)

	// Rate limit defaults
	v.SetDefault("rate_limit.window", defaults.RateLimit.Window)
	v.SetDefault("rate_limit.max_requests", defaults.RateLimit.MaxRequests)

	// Client defaults
	v.SetDefault("client.base_url", defaults.Client.BaseURL)
	v.SetDefault("client.timeout", defaults.Client.Timeout)
}

// bindEnvVars binds the plain environment names alongside the prefixed ones
func bindEnvVars(v *viper.Viper) {
	v.BindEnv("http.port", "PORT", "JOBTRACKER_HTTP_PORT")
	v.BindEnv("database.data_dir", "DATA_DIR", "JOBTRACKER_DATABASE_DATA_DIR")
	v.BindEnv("database.path", "DB_PATH", "JOBTRACKER_DATABASE_PATH")
	v.BindEnv("rate_limit.max_requests", "RATE_LIMIT_MAX_REQUESTS", "JOBTRACKER_RATE_LIMIT_MAX_REQUESTS")
	v.BindEnv("server.environment", "APP_ENV", "JOBTRACKER_SERVER_ENVIRONMENT")
	v.BindEnv("server.log_level", "LOG_LEVEL", "JOBTRACKER_SERVER_LOG_LEVEL")
	v.BindEnv("server.debug", "DEBUG", "JOBTRACKER_SERVER_DEBUG")
	v.BindEnv("client.base_url", "JOB_TRACKER_API_URL", "JOBTRACKER_CLIENT_BASE_URL")
}

// loadDotEnv loads variables from path into the environment; a missing file is not an error
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}

// parseMillis converts a millisecond count into a duration
func parseMillis(s string) (time.Duration, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	if ms <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", ms)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// LoadConfigOrDefault loads configuration, tolerating a configPath that does
// not exist. The environment and defaults still apply in that case; any other
// failure is returned.
func LoadConfigOrDefault(configPath string) (*Config, error) {
	config, err := LoadConfig(configPath)
	if err == nil {
		return config, nil
	}
	if configPath != "" && errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: config file %s not found, using environment and defaults\n", configPath)
		return LoadConfig("")
	}
	return nil, err
}
