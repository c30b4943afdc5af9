package utils

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LoggerConfig holds configuration for the logger
type LoggerConfig struct {
	// Level sets the minimum log level (debug, info, warn, error, fatal, panic)
	Level string
	// Pretty enables console output; ignored when logging to a file
	Pretty bool
	// CallerInfo adds file and line number to logs
	CallerInfo bool
	// LogFile is appended to when set, otherwise logs go to stderr
	LogFile string
}

// NewLogger creates a logger from config. An unknown level means info.
func NewLogger(config LoggerConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	output := logOutput(config.LogFile)
	if config.Pretty && config.LogFile == "" {
		output = zerolog.ConsoleWriter{
			Out:           output,
			TimeFormat:    time.RFC3339,
			FieldsExclude: []string{zerolog.TimestampFieldName},
		}
	}

	ctx := zerolog.New(output).Level(level).With().Timestamp()
	if config.CallerInfo {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

// logOutput opens path for appending, creating its directory. Any failure
// falls back to stderr so a bad LOG_FILE never stops the process.
func logOutput(path string) io.Writer {
	if path == "" {
		return os.Stderr
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return os.Stderr
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return os.Stderr
	}
	return file
}

// SetupGlobalLogger replaces zerolog's package-level logger
func SetupGlobalLogger(config LoggerConfig) {
	log.Logger = NewLogger(config)
}

// WithContext attaches logger to ctx
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return logger.WithContext(ctx)
}

// FromContext retrieves the logger from the context.
// If none was attached, zerolog's disabled logger is returned.
func FromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

// WithField returns a child logger that stamps key on every entry
func WithField(logger zerolog.Logger, key string, value interface{}) zerolog.Logger {
	return logger.With().Interface(key, value).Logger()
}

// ConfigForEnvironment returns the logger configuration for an application
// environment. Development (or an unset environment) gets debug console
// output with caller info; anything else logs JSON at info. A non-empty
// level overrides the default.
func ConfigForEnvironment(environment, level string) LoggerConfig {
	var config LoggerConfig
	switch environment {
	case "", "development":
		config = LoggerConfig{Level: "debug", Pretty: true, CallerInfo: true}
	default:
		config = LoggerConfig{Level: "info"}
	}
	if level != "" {
		config.Level = level
	}
	return config
}
