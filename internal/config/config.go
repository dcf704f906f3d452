package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"annotation-insights/internal/model"
	"annotation-insights/pkg/utils"
)

// DefaultPath is the config file read when no --config flag is given.
const DefaultPath = "insights.yaml"

// Config holds all service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Output   OutputConfig   `yaml:"output"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// UpstreamConfig points at the annotation API. An empty base URL disables
// api sources, model listing, retries and fragment forwarding.
type UpstreamConfig struct {
	BaseURL string      `yaml:"base_url"`
	APIKey  string      `yaml:"api_key"`
	Timeout string      `yaml:"timeout"`
	Retry   RetryConfig `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts  int     `yaml:"max_attempts"`
	InitialDelay string  `yaml:"initial_delay"`
	MaxDelay     string  `yaml:"max_delay"`
	Multiplier   float64 `yaml:"multiplier"`
}

type PipelineConfig struct {
	DefaultInterval   string `yaml:"default_interval"`
	MaxParallelSplits int    `yaml:"max_parallel_splits"`
	JobTimeout        string `yaml:"job_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Store:  StoreConfig{DatabasePath: "insights.db"},
		Output: OutputConfig{Dir: "output"},
		Upstream: UpstreamConfig{
			Timeout: "30s",
			Retry: RetryConfig{
				MaxAttempts:  3,
				InitialDelay: "500ms",
				MaxDelay:     "5s",
				Multiplier:   2.0,
			},
		},
		Pipeline: PipelineConfig{
			DefaultInterval:   string(model.IntervalDay),
			MaxParallelSplits: 4,
			JobTimeout:        "5m",
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load reads a YAML config. A missing file yields the defaults. Environment
// overrides are applied either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("INSIGHTS_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("INSIGHTS_DB_PATH"); v != "" {
		c.Store.DatabasePath = v
	}
	if v := os.Getenv("INSIGHTS_OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv("INSIGHTS_UPSTREAM_URL"); v != "" {
		c.Upstream.BaseURL = v
	}
	if v := os.Getenv("INSIGHTS_UPSTREAM_API_KEY"); v != "" {
		c.Upstream.APIKey = v
	}
	if v := os.Getenv("INSIGHTS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Store.DatabasePath == "" {
		errs = append(errs, errors.New("store.database_path is required"))
	}
	switch model.Interval(c.Pipeline.DefaultInterval) {
	case model.IntervalDay, model.IntervalWeek, model.IntervalMonth, model.IntervalQuarter, model.IntervalYear:
	default:
		errs = append(errs, fmt.Errorf("pipeline.default_interval: unknown interval %q", c.Pipeline.DefaultInterval))
	}
	if c.Pipeline.MaxParallelSplits < 0 {
		errs = append(errs, fmt.Errorf("pipeline.max_parallel_splits must not be negative"))
	}
	for name, d := range map[string]string{
		"pipeline.job_timeout":         c.Pipeline.JobTimeout,
		"upstream.timeout":             c.Upstream.Timeout,
		"upstream.retry.initial_delay": c.Upstream.Retry.InitialDelay,
		"upstream.retry.max_delay":     c.Upstream.Retry.MaxDelay,
	} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error", "":
	default:
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "text", "":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unknown format %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// GetJobTimeout returns the default run timeout.
func (c *Config) GetJobTimeout() time.Duration {
	return utils.ParseDuration(c.Pipeline.JobTimeout, 5*time.Minute)
}

// GetUpstreamTimeout returns the per-request upstream timeout.
func (c *Config) GetUpstreamTimeout() time.Duration {
	return utils.ParseDuration(c.Upstream.Timeout, 30*time.Second)
}

// GetRetryConfig converts the retry section for the upstream client.
func (c *Config) GetRetryConfig() model.RetryConfig {
	r := c.Upstream.Retry
	return model.RetryConfig{
		MaxAttempts:       r.MaxAttempts,
		InitialDelay:      utils.ParseDuration(r.InitialDelay, 500*time.Millisecond),
		MaxDelay:          utils.ParseDuration(r.MaxDelay, 5*time.Second),
		BackoffMultiplier: r.Multiplier,
		Jitter:            true,
	}
}
