package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vertextoedge/txtfetch/internal/domain"
)

// EnvPrefix is prepended to every environment override, e.g.
// TXTFETCH_FETCH_MAX_CONCURRENT.
const EnvPrefix = "TXTFETCH"

// DefaultConfigFile is read from the working directory when no path is given
const DefaultConfigFile = "config.yaml"

// Config represents the entire application configuration
type Config struct {
	Metadata MetadataConfig `mapstructure:"metadata"`
	Output   OutputConfig   `mapstructure:"output"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Progress ProgressConfig `mapstructure:"progress"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
}

// MetadataConfig describes where the scraper's metadata files are
type MetadataConfig struct {
	Dir           string `mapstructure:"dir"`
	Marker        string `mapstructure:"marker"`
	WriteNotFound bool   `mapstructure:"write_not_found"`
}

// OutputConfig describes where downloaded files go
type OutputConfig struct {
	Dir       string `mapstructure:"dir"`
	Extension string `mapstructure:"extension"`
}

// FetchConfig contains download settings
type FetchConfig struct {
	MaxConcurrent     int     `mapstructure:"max_concurrent"`
	MaxTotalSockets   int     `mapstructure:"max_total_sockets"`
	MaxRetries        int     `mapstructure:"max_retries"`
	RetryBackoff      string  `mapstructure:"retry_backoff"`
	PollInterval      string  `mapstructure:"poll_interval"`
	RequestTimeout    string  `mapstructure:"request_timeout"`
	DialTimeout       string  `mapstructure:"dial_timeout"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	FailFast          bool    `mapstructure:"fail_fast"`
	UserAgent         string  `mapstructure:"user_agent"`
}

// ProgressConfig contains progress output settings
type ProgressConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	LogInterval string `mapstructure:"log_interval"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig contains run ledger settings
type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("metadata.dir", "data/scraped-ebooks")
	v.SetDefault("metadata.marker", "scraped_ebooks.json")
	v.SetDefault("metadata.write_not_found", false)
	v.SetDefault("output.dir", "data/txt-ebooks")
	v.SetDefault("output.extension", ".txt")
	v.SetDefault("fetch.max_concurrent", 0)
	v.SetDefault("fetch.max_total_sockets", 0)
	v.SetDefault("fetch.max_retries", 5)
	v.SetDefault("fetch.retry_backoff", "100ms")
	v.SetDefault("fetch.poll_interval", "10ms")
	v.SetDefault("fetch.request_timeout", "0s")
	v.SetDefault("fetch.dial_timeout", "30s")
	v.SetDefault("fetch.requests_per_second", 0)
	v.SetDefault("fetch.fail_fast", false)
	v.SetDefault("fetch.user_agent", "txtfetch")
	v.SetDefault("progress.enabled", true)
	v.SetDefault("progress.log_interval", "10s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("database.enabled", true)
	v.SetDefault("database.path", "")
}

// Load loads configuration from the specified file path.
// An empty path reads DefaultConfigFile if it exists and falls back to
// defaults otherwise. Environment variables override both.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := configPath != ""
	if !explicit {
		configPath = DefaultConfigFile
	}
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, domain.NewConfigurationError(configPath, fmt.Errorf("failed to read config file: %w", err))
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, domain.NewConfigurationError(configPath, fmt.Errorf("failed to unmarshal config: %w", err))
	}

	if err := config.Validate(); err != nil {
		return nil, domain.NewConfigurationError(configPath, fmt.Errorf("config validation failed: %w", err))
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Metadata.Dir == "" {
		return fmt.Errorf("metadata.dir is required")
	}
	if c.Metadata.Marker == "" {
		return fmt.Errorf("metadata.marker is required")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir is required")
	}

	if c.Fetch.MaxConcurrent < 0 {
		return fmt.Errorf("fetch.max_concurrent must not be negative")
	}
	if c.Fetch.MaxTotalSockets < 0 {
		return fmt.Errorf("fetch.max_total_sockets must not be negative")
	}
	if c.Fetch.MaxRetries < 0 {
		return fmt.Errorf("fetch.max_retries must not be negative")
	}
	if c.Fetch.RequestsPerSecond < 0 {
		return fmt.Errorf("fetch.requests_per_second must not be negative")
	}

	durations := map[string]string{
		"fetch.retry_backoff":   c.Fetch.RetryBackoff,
		"fetch.poll_interval":   c.Fetch.PollInterval,
		"fetch.request_timeout": c.Fetch.RequestTimeout,
		"fetch.dial_timeout":    c.Fetch.DialTimeout,
		"progress.log_interval": c.Progress.LogInterval,
	}
	for key, value := range durations {
		if value == "" {
			continue
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
		// Valid formats
	default:
		return fmt.Errorf("invalid logging.format: %s", c.Logging.Format)
	}

	return nil
}

// GetRetryBackoff returns the linear retry step as time.Duration
func (c *FetchConfig) GetRetryBackoff() time.Duration {
	d, _ := time.ParseDuration(c.RetryBackoff)
	if d == 0 {
		return 100 * time.Millisecond
	}
	return d
}

// GetPollInterval returns the drain loop tick as time.Duration
func (c *FetchConfig) GetPollInterval() time.Duration {
	d, _ := time.ParseDuration(c.PollInterval)
	if d == 0 {
		return 10 * time.Millisecond
	}
	return d
}

// GetRequestTimeout returns the per-request timeout, zero meaning none
func (c *FetchConfig) GetRequestTimeout() time.Duration {
	d, _ := time.ParseDuration(c.RequestTimeout)
	return d
}

// GetDialTimeout returns the connect timeout as time.Duration
func (c *FetchConfig) GetDialTimeout() time.Duration {
	d, _ := time.ParseDuration(c.DialTimeout)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// GetMaxTotalSockets returns the socket ceiling, defaulting to concurrency
func (c *FetchConfig) GetMaxTotalSockets(maxConcurrent int) int {
	if c.MaxTotalSockets > 0 {
		return c.MaxTotalSockets
	}
	return maxConcurrent
}

// GetLogInterval returns the progress log interval as time.Duration
func (c *ProgressConfig) GetLogInterval() time.Duration {
	d, _ := time.ParseDuration(c.LogInterval)
	if d == 0 {
		return 10 * time.Second
	}
	return d
}

// GetPath returns the ledger path, defaulting to txtfetch.db next to the output dir
func (c *DatabaseConfig) GetPath(outputDir string) string {
	if c.Path != "" {
		return c.Path
	}
	return filepath.Join(filepath.Dir(filepath.Clean(outputDir)), "txtfetch.db")
}
