package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME and the working directory at empty temp dirs.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "https://api.github.com", cfg.GitHub.BaseURL)
	assert.Equal(t, "gitdata", cfg.GitHub.UserAgent)
	assert.Equal(t, 30*time.Second, cfg.GitHub.Timeout)
	assert.Equal(t, 0, cfg.GitHub.MaxPages)
	assert.Equal(t, ".", cfg.Auth.Dir)
	assert.False(t, cfg.Auth.UseKeyring)
	assert.Equal(t, "gh_cache", cfg.Cache.Dir)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Empty(t, cfg.Metrics.File)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GITDATA_BASE_URL", "https://ghe.example.com/api/v3")
	t.Setenv("GITDATA_TIMEOUT", "45s")
	t.Setenv("GITDATA_MAX_PAGES", "3")
	t.Setenv("GITDATA_KEYRING", "true")
	t.Setenv("GITDATA_CACHE_DIR", "/tmp/gitdata-cache")
	t.Setenv("GITDATA_LOG_LEVEL", "debug")
	t.Setenv("GITDATA_METRICS_FILE", "/tmp/gitdata.prom")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "https://ghe.example.com/api/v3", cfg.GitHub.BaseURL)
	assert.Equal(t, 45*time.Second, cfg.GitHub.Timeout)
	assert.Equal(t, 3, cfg.GitHub.MaxPages)
	assert.True(t, cfg.Auth.UseKeyring)
	assert.Equal(t, "/tmp/gitdata-cache", cfg.Cache.Dir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/gitdata.prom", cfg.Metrics.File)
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	t.Setenv("GITDATA_TIMEOUT", "soon")
	t.Setenv("GITDATA_MAX_PAGES", "many")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GITDATA_TIMEOUT")
	assert.Contains(t, err.Error(), "GITDATA_MAX_PAGES")
	assert.Equal(t, 30*time.Second, cfg.GitHub.Timeout)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlContent := `github:
  user_agent: my-agent
  timeout: 10s
  max_pages: 2
cache:
  dir: /var/cache/gitdata
logging:
  level: info
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "my-agent", cfg.GitHub.UserAgent)
	assert.Equal(t, 10*time.Second, cfg.GitHub.Timeout)
	assert.Equal(t, 2, cfg.GitHub.MaxPages)
	assert.Equal(t, "/var/cache/gitdata", cfg.Cache.Dir)
	assert.Equal(t, "info", cfg.Logging.Level)
	// untouched keys keep their defaults
	assert.Equal(t, "https://api.github.com", cfg.GitHub.BaseURL)

	assert.Error(t, cfg.LoadFromFile(filepath.Join(dir, "missing.yaml")))
}

func TestLoadFromFile_DefaultLocation(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitdata.yaml"), []byte("cache:\n  dir: cachedir\n"), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(""))
	assert.Equal(t, "cachedir", cfg.Cache.Dir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"relative base url", func(c *Config) { c.GitHub.BaseURL = "api.github.com" }, "base URL"},
		{"zero timeout", func(c *Config) { c.GitHub.Timeout = 0 }, "timeout"},
		{"negative max pages", func(c *Config) { c.GitHub.MaxPages = -1 }, "max pages"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "log level"},
		{"metrics extension", func(c *Config) { c.Metrics.File = "metrics.txt" }, ".prom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_JoinsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GitHub.Timeout = 0
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
	assert.Contains(t, err.Error(), "log level")
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.GitHub.MaxPages = 5
	cfg.Auth.UseKeyring = true
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, cfg, loaded)
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]any{
		"log-level":    "error",
		"pretty":       false,
		"metrics-file": "out.prom",
		"cache-dir":    "",
		"max-pages":    4,
		"base-url":     "https://ghe.example.com/api/v3",
	})

	assert.Equal(t, "error", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Pretty)
	assert.Equal(t, "out.prom", cfg.Metrics.File)
	assert.Equal(t, "gh_cache", cfg.Cache.Dir)
	assert.Equal(t, 4, cfg.GitHub.MaxPages)
	assert.Equal(t, "https://ghe.example.com/api/v3", cfg.GitHub.BaseURL)
}

func TestLoad_Precedence(t *testing.T) {
	dir := isolate(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitdata.yaml"),
		[]byte("logging:\n  level: info\ncache:\n  dir: from-file\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("GITDATA_CACHE_DIR=from-dotenv\n"), 0644))
	t.Setenv("GITDATA_LOG_LEVEL", "error")
	t.Cleanup(func() { os.Unsetenv("GITDATA_CACHE_DIR") })

	cfg, err := Load("", map[string]any{"metrics-file": "run.prom"})
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logging.Level, "environment beats file")
	assert.Equal(t, "from-dotenv", cfg.Cache.Dir, ".env beats file")
	assert.Equal(t, "run.prom", cfg.Metrics.File, "flag applied")
}

func TestLoad_ValidationFailure(t *testing.T) {
	isolate(t)
	t.Setenv("GITDATA_LOG_LEVEL", "chatty")

	_, err := Load("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoad_NegativeMaxPagesFlag(t *testing.T) {
	isolate(t)

	_, err := Load("", map[string]any{"max-pages": -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max pages")
}
