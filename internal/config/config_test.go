package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "Valid configuration",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "Missing data dir and path",
			modify: func(c *Config) {
				c.Database.DataDir = ""
				c.Database.Path = ""
			},
			wantErr: true,
			errMsg:  "database data_dir or path is required",
		},
		{
			name: "Path without data dir",
			modify: func(c *Config) {
				c.Database.DataDir = ""
				c.Database.Path = "/tmp/jobs.db"
			},
			wantErr: false,
		},
		{
			name:    "Negative connect retries",
			modify:  func(c *Config) { c.Database.ConnectRetries = -1 },
			wantErr: true,
			errMsg:  "connect retries cannot be negative",
		},
		{
			name:    "Invalid log level",
			modify:  func(c *Config) { c.Server.LogLevel = "verbose" },
			wantErr: true,
			errMsg:  "invalid log level: verbose",
		},
		{
			name:    "Empty environment",
			modify:  func(c *Config) { c.Server.Environment = "" },
			wantErr: true,
			errMsg:  "environment cannot be empty",
		},
		{
			name:    "Port zero",
			modify:  func(c *Config) { c.HTTP.Port = 0 },
			wantErr: true,
			errMsg:  "HTTP port must be between 1 and 65535",
		},
		{
			name:    "Port too large",
			modify:  func(c *Config) { c.HTTP.Port = 70000 },
			wantErr: true,
			errMsg:  "HTTP port must be between 1 and 65535",
		},
		{
			name:    "Zero rate limit window",
			modify:  func(c *Config) { c.RateLimit.Window = 0 },
			wantErr: true,
			errMsg:  "rate limit window must be positive",
		},
		{
			name:    "Zero rate limit max",
			modify:  func(c *Config) { c.RateLimit.MaxRequests = 0 },
			wantErr: true,
			errMsg:  "rate limit max requests must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewDefault()
			tt.modify(c)

			err := c.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_DatabasePath(t *testing.T) {
	c := NewDefault()
	c.Database.Path = ""
	c.Database.DataDir = "/var/lib/jobs"
	assert.Equal(t, filepath.Join("/var/lib/jobs", "job_tracker.db"), c.DatabasePath())

	c.Database.Path = "/tmp/other.db"
	assert.Equal(t, "/tmp/other.db", c.DatabasePath())
}

func TestConfig_IsProduction(t *testing.T) {
	c := NewDefault()
	assert.False(t, c.IsProduction())

	c.Server.Environment = "production"
	assert.True(t, c.IsProduction())
}

func TestLoadConfig(t *testing.T) {
	tempDir := t.TempDir()

	t.Run("Load from file", func(t *testing.T) {
		configPath := filepath.Join(tempDir, "test-config.yaml")
		configContent := `
database:
  data_dir: /srv/jobs
  log_level: warn
server:
  environment: production
  log_level: debug
http:
  port: 9090
rate_limit:
  window: 1m
  max_requests: 10
`
		require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

		config, err := LoadConfig(configPath)
		require.NoError(t, err)
		require.NotNil(t, config)

		assert.Equal(t, "/srv/jobs", config.Database.DataDir)
		assert.Equal(t, filepath.Join("/srv/jobs", "job_tracker.db"), config.Database.Path)
		assert.Equal(t, "warn", config.Database.LogLevel)
		assert.Equal(t, "production", config.Server.Environment)
		assert.Equal(t, "debug", config.Server.LogLevel)
		assert.Equal(t, 9090, config.HTTP.Port)
		assert.Equal(t, time.Minute, config.RateLimit.Window)
		assert.Equal(t, 10, config.RateLimit.MaxRequests)
	})

	t.Run("Environment variable override", func(t *testing.T) {
		configPath := filepath.Join(tempDir, "env-test-config.yaml")
		configContent := `
http:
  port: 9090
server:
  log_level: info
`
		require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

		os.Setenv("PORT", "8123")
		os.Setenv("LOG_LEVEL", "error")
		os.Setenv("JOBTRACKER_DATABASE_LOG_LEVEL", "info")
		defer func() {
			os.Unsetenv("PORT")
			os.Unsetenv("LOG_LEVEL")
			os.Unsetenv("JOBTRACKER_DATABASE_LOG_LEVEL")
		}()

		config, err := LoadConfig(configPath)
		require.NoError(t, err)

		assert.Equal(t, 8123, config.HTTP.Port)
		assert.Equal(t, "error", config.Server.LogLevel)
		assert.Equal(t, "info", config.Database.LogLevel)
	})

	t.Run("Invalid config file", func(t *testing.T) {
		configPath := filepath.Join(tempDir, "invalid.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("http: [port"), 0644))

		_, err := LoadConfig(configPath)
		assert.Error(t, err)
	})

	t.Run("Invalid values fail validation", func(t *testing.T) {
		configPath := filepath.Join(tempDir, "bad-values.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("http:\n  port: 0\n"), 0644))

		_, err := LoadConfig(configPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}

func TestLoadConfigOrDefault(t *testing.T) {
	t.Run("Missing file keeps environment", func(t *testing.T) {
		t.Setenv("DB_PATH", "/tmp/custom/jobs.db")
		t.Setenv("PORT", "9999")

		config, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "/tmp/custom/jobs.db", config.Database.Path)
		assert.Equal(t, 9999, config.HTTP.Port)
	})

	t.Run("Malformed environment is an error", func(t *testing.T) {
		t.Setenv("DB_PATH", "/tmp/custom/jobs.db")
		t.Setenv("RATE_LIMIT_WINDOW_MS", "15min")

		config, err := LoadConfigOrDefault("")
		require.Error(t, err)
		assert.Nil(t, config)
		assert.Contains(t, err.Error(), "RATE_LIMIT_WINDOW_MS")
	})

	t.Run("Invalid log level is an error", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "loud")

		_, err := LoadConfigOrDefault("")
		assert.Error(t, err)
	})

	t.Run("Bad config file is an error", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "broken.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("http: [unclosed\n"), 0644))

		_, err := LoadConfigOrDefault(configPath)
		assert.Error(t, err)
	})
}

func TestNewDefault(t *testing.T) {
	config := NewDefault()

	assert.Equal(t, "./data", config.Database.DataDir)
	assert.Equal(t, filepath.Join("./data", "job_tracker.db"), config.Database.Path)
	assert.Equal(t, "error", config.Database.LogLevel)
	assert.Equal(t, 3, config.Database.ConnectRetries)
	assert.Equal(t, "development", config.Server.Environment)
	assert.Equal(t, "info", config.Server.LogLevel)
	assert.False(t, config.Server.Debug)
	assert.Equal(t, 8070, config.HTTP.Port)
	assert.Equal(t, 15*time.Minute, config.RateLimit.Window)
	assert.Equal(t, 100, config.RateLimit.MaxRequests)
	assert.Equal(t, "http://localhost:8070", config.Client.BaseURL)

	assert.NoError(t, config.Validate())
}
