// Package config loads gitdata settings from defaults, a YAML file, .env
// files, GITDATA_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/gitdata/pkg/cache"
)

// Config holds all configuration options for gitdata
type Config struct {
	// GitHub API access
	GitHub GitHubConfig `yaml:"github" json:"github"`

	// Token stores
	Auth AuthConfig `yaml:"auth" json:"auth"`

	// Endpoint cache
	Cache CacheConfig `yaml:"cache" json:"cache"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Metrics export
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// GitHubConfig holds API client settings
type GitHubConfig struct {
	BaseURL   string        `yaml:"base_url" json:"base_url"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	MaxPages  int           `yaml:"max_pages" json:"max_pages"`
}

// AuthConfig holds token store settings
type AuthConfig struct {
	Dir        string `yaml:"dir" json:"dir"`
	UseKeyring bool   `yaml:"use_keyring" json:"use_keyring"`
}

// CacheConfig holds cache settings
type CacheConfig struct {
	Dir string `yaml:"dir" json:"dir"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Pretty bool   `yaml:"pretty" json:"pretty"`
}

// MetricsConfig holds metrics export settings
type MetricsConfig struct {
	// File receives the Prometheus textfile at the end of a run. Empty disables it.
	File string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		GitHub: GitHubConfig{
			BaseURL:   "https://api.github.com",
			UserAgent: "gitdata",
			Timeout:   30 * time.Second,
			MaxPages:  0, // 0 means all pages
		},
		Auth: AuthConfig{
			Dir:        ".",
			UseKeyring: false,
		},
		Cache: CacheConfig{
			Dir: cache.DefaultDir,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Pretty: true,
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv("GITDATA_BASE_URL"); v != "" {
		c.GitHub.BaseURL = v
	}
	if v := os.Getenv("GITDATA_USER_AGENT"); v != "" {
		c.GitHub.UserAgent = v
	}
	if v := os.Getenv("GITDATA_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("GITDATA_TIMEOUT: %w", err))
		} else {
			c.GitHub.Timeout = d
		}
	}
	if v := os.Getenv("GITDATA_MAX_PAGES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("GITDATA_MAX_PAGES: %w", err))
		} else {
			c.GitHub.MaxPages = n
		}
	}

	if v := os.Getenv("GITDATA_AUTH_DIR"); v != "" {
		c.Auth.Dir = v
	}
	if v := os.Getenv("GITDATA_KEYRING"); v != "" {
		c.Auth.UseKeyring = parseBool(v)
	}

	if v := os.Getenv("GITDATA_CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}

	if v := os.Getenv("GITDATA_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("GITDATA_LOG_PRETTY"); v != "" {
		c.Logging.Pretty = parseBool(v)
	}

	if v := os.Getenv("GITDATA_METRICS_FILE"); v != "" {
		c.Metrics.File = v
	}

	return errors.Join(errs...)
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home, _ := os.UserHomeDir()

	locations := []string{
		".gitdata.yaml",
		".gitdata.yml",
	}
	if home != "" {
		locations = append(locations,
			filepath.Join(home, ".config", "gitdata", "config.yaml"),
			filepath.Join(home, ".config", "gitdata", "config.yml"),
		)
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.GitHub.BaseURL); err != nil || !u.IsAbs() {
		errs = append(errs, fmt.Errorf("base URL must be absolute (got %q)", c.GitHub.BaseURL))
	}
	if c.GitHub.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if c.GitHub.MaxPages < 0 {
		errs = append(errs, errors.New("max pages cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	if c.Metrics.File != "" && filepath.Ext(c.Metrics.File) != ".prom" {
		errs = append(errs, errors.New("metrics file must have a .prom extension"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only flags the user actually set should be passed.
func (c *Config) MergeCommandLineFlags(flags map[string]any) {
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["pretty"].(bool); ok {
		c.Logging.Pretty = v
	}
	if v, ok := flags["metrics-file"].(string); ok && v != "" {
		c.Metrics.File = v
	}
	if v, ok := flags["cache-dir"].(string); ok && v != "" {
		c.Cache.Dir = v
	}
	if v, ok := flags["base-url"].(string); ok && v != "" {
		c.GitHub.BaseURL = v
	}
	if v, ok := flags["max-pages"].(int); ok {
		c.GitHub.MaxPages = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]any) (*Config, error) {
	// .env files never override variables that are already set
	_ = godotenv.Load(".env")
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".gitdata.env"))
	}

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
