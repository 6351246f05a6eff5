// Package logging configures zerolog for the gitdata library and CLI.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// VerboseLevel maps the CLI verbose switch onto a level. An explicit
// level wins unless verbose asks for more detail.
func VerboseLevel(level LogLevel, verbose bool) LogLevel {
	if verbose {
		return LevelDebug
	}
	if level == "" {
		return LevelInfo
	}
	return level
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel converts a LogLevel to zerolog.Level, defaulting to info.
func ParseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(string(level))) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Every API call with status, bytes and rate-limit budget
//   - Page traversal progress ("processing page N of M")
//   - Cache reads and writes
//
// Info: Normal operation events
//   - Session start and summary
//   - Output files written
//   - Credential changes (token stored or deleted)
//
// Warn: Warning conditions that don't prevent operation
//   - Non-2xx API responses
//   - Rate limit budget running low
//   - Requested fields missing from API items
//
// Error: Error conditions requiring attention
//   - Network failures
//   - Unwritable output or cache files
//   - Configuration errors
//
// Context Fields:
//   - endpoint: API endpoint path or URL
//   - status_code: HTTP status code
//   - bytes: Response body size
//   - duration: Request duration
//   - error_class: Error classification (client, server, rate_limit, network)
//   - remaining / limit / used: Rate limit budget
//   - user: GitHub username, empty for anonymous calls
//   - file: Output or cache file path
