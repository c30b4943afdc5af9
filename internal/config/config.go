package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// DefaultDatabaseFile is the store file name used when no explicit path is configured
const DefaultDatabaseFile = "job_tracker.db"

// Config represents the main application configuration
type Config struct {
	Database  Database  `json:"database" mapstructure:"database"`
	Server    Server    `json:"server" mapstructure:"server"`
	HTTP      HTTP      `json:"http" mapstructure:"http"`
	RateLimit RateLimit `json:"rate_limit" mapstructure:"rate_limit"`
	Client    Client    `json:"client" mapstructure:"client"`
}

// Database represents the SQLite store configuration
type Database struct {
	DataDir        string        `json:"data_dir" mapstructure:"data_dir"`
	Path           string        `json:"path" mapstructure:"path"`
	LogLevel       string        `json:"log_level" mapstructure:"log_level"`
	BusyTimeout    time.Duration `json:"busy_timeout" mapstructure:"busy_timeout"`
	ConnectRetries int           `json:"connect_retries" mapstructure:"connect_retries"`
}

// Server represents process-wide settings
type Server struct {
	Environment string `json:"environment" mapstructure:"environment"`
	LogLevel    string `json:"log_level" mapstructure:"log_level"`
	Debug       bool   `json:"debug" mapstructure:"debug"`
}

// HTTP represents HTTP server configuration
type HTTP struct {
	Port         int      `json:"port" mapstructure:"port"`
	AllowOrigins []string `json:"allow_origins" mapstructure:"allow_origins"`
}

// RateLimit bounds requests per client IP on the /api routes
type RateLimit struct {
	Window      time.Duration `json:"window" mapstructure:"window"`
	MaxRequests int           `json:"max_requests" mapstructure:"max_requests"`
}

// Client configures the HTTP client used by jobctl
type Client struct {
	BaseURL string        `json:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// NewDefault returns a Config instance with default values
func NewDefault() *Config {
	return &Config{
		Database: Database{
			DataDir:        "./data",
			Path:           filepath.Join("./data", DefaultDatabaseFile),
			LogLevel:       "error",
			BusyTimeout:    5 * time.Second,
			ConnectRetries: 3,
		},
		Server: Server{
			Environment: "development",
			LogLevel:    "info",
			Debug:       false,
		},
		HTTP: HTTP{
			Port:         8070,
			AllowOrigins: []string{"http://localhost:3000", "http://localhost:5173", "http://localhost:8070"},
		},
		RateLimit: RateLimit{
			Window:      15 * time.Minute,
			MaxRequests: 100,
		},
		Client: Client{
			BaseURL: "http://localhost:8070",
			Timeout: 10 * time.Second,
		},
	}
}

// IsProduction reports whether the server runs in the production environment
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// DatabasePath returns the store file path, derived from the data directory when unset
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(c.Database.DataDir, DefaultDatabaseFile)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Database validation
	if c.Database.DataDir == "" && c.Database.Path == "" {
		return fmt.Errorf("database data_dir or path is required")
	}
	if c.Database.ConnectRetries < 0 {
		return fmt.Errorf("connect retries cannot be negative")
	}
	if c.Database.BusyTimeout < 0 {
		return fmt.Errorf("busy timeout cannot be negative")
	}

	// Server validation
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}
	if !validLogLevels[c.Server.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}
	if c.Server.Environment == "" {
		return fmt.Errorf("environment cannot be empty")
	}

	// HTTP validation
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}

	// Rate limit validation
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive")
	}
	if c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("rate limit max requests must be greater than 0")
	}

	if c.Client.Timeout < 0 {
		return fmt.Errorf("client timeout cannot be negative")
	}

	return nil
}
