package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"annotation-insights/internal/model"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "insights.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
upstream:
  base_url: http://annotations.internal/api
  retry:
    max_attempts: 5
pipeline:
  default_interval: week
  job_timeout: 90s
logging:
  format: text
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "http://annotations.internal/api", cfg.Upstream.BaseURL)
	assert.Equal(t, 5, cfg.Upstream.Retry.MaxAttempts)
	assert.Equal(t, "500ms", cfg.Upstream.Retry.InitialDelay, "unset keys keep their defaults")
	assert.Equal(t, "week", cfg.Pipeline.DefaultInterval)
	assert.Equal(t, 90*time.Second, cfg.GetJobTimeout())
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "insights.db", cfg.Store.DatabasePath)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "insights.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("INSIGHTS_ADDR", ":7000")
	t.Setenv("INSIGHTS_DB_PATH", "/var/lib/insights.db")
	t.Setenv("INSIGHTS_OUTPUT_DIR", "/var/lib/exports")
	t.Setenv("INSIGHTS_UPSTREAM_URL", "https://api.example.test")
	t.Setenv("INSIGHTS_UPSTREAM_API_KEY", "k")
	t.Setenv("INSIGHTS_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "/var/lib/insights.db", cfg.Store.DatabasePath)
	assert.Equal(t, "/var/lib/exports", cfg.Output.Dir)
	assert.Equal(t, "https://api.example.test", cfg.Upstream.BaseURL)
	assert.Equal(t, "k", cfg.Upstream.APIKey)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "insights.yaml")
	cfg := DefaultConfig()
	cfg.Upstream.BaseURL = "http://localhost:8000"
	cfg.Pipeline.MaxParallelSplits = 8

	require.NoError(t, cfg.Save(path))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Addr = ""
	cfg.Pipeline.DefaultInterval = "fortnight"
	cfg.Pipeline.MaxParallelSplits = -1
	cfg.Pipeline.JobTimeout = "forever"
	cfg.Logging.Level = "loud"
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"server.addr is required",
		`unknown interval "fortnight"`,
		"max_parallel_splits must not be negative",
		"pipeline.job_timeout",
		`unknown level "loud"`,
		`unknown format "xml"`,
	} {
		assert.ErrorContains(t, err, want)
	}
}

func TestDurationsFallBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pipeline.JobTimeout = "bogus"
	cfg.Upstream.Timeout = ""
	cfg.Upstream.Retry.InitialDelay = "-1s"

	assert.Equal(t, 5*time.Minute, cfg.GetJobTimeout())
	assert.Equal(t, 30*time.Second, cfg.GetUpstreamTimeout())
	assert.Equal(t, model.RetryConfig{
		MaxAttempts:       3,
		InitialDelay:      500 * time.Millisecond,
		MaxDelay:          5 * time.Second,
		BackoffMultiplier: 2,
		Jitter:            true,
	}, cfg.GetRetryConfig())
}
