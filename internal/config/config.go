package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ligustah/paperharvest/internal/catalog"
	"github.com/ligustah/paperharvest/internal/progress"
)

// EnvPrefix prefixes every environment variable read by LoadFromEnv.
const EnvPrefix = "HARVEST_"

// Config defines configuration for the harvest CLI.
type Config struct {
	StartDate       time.Time     `yaml:"start_date"`
	EndDate         time.Time     `yaml:"end_date"`
	Category        string        `yaml:"category"`
	MaxPerMonth     int           `yaml:"max_per_month"`
	FetchWorkers    int           `yaml:"fetch_workers"`
	DownloadWorkers int           `yaml:"download_workers"`
	Destination     string        `yaml:"destination"`
	MaxFileSize     int64         `yaml:"max_file_size"`
	Progress        bool          `yaml:"progress"`
	Ledger          string        `yaml:"ledger"`
	Catalog         CatalogConfig `yaml:"catalog"`
	HTTP            HTTPConfig    `yaml:"http"`
	Log             LogConfig     `yaml:"log"`
	Watch           WatchConfig   `yaml:"watch"`
}

// CatalogConfig defines catalog search retries.
type CatalogConfig struct {
	// Retries is nil when unset, so that an explicit 0 survives Merge.
	Retries    *int          `yaml:"retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// RetryCount returns the configured number of retries, or the fetcher
// default when unset.
func (c CatalogConfig) RetryCount() int {
	if c.Retries == nil {
		return catalog.DefaultFetcherOptions().Retries
	}
	return *c.Retries
}

// HTTPConfig defines the document download client.
type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
	Retry     RetryConfig   `yaml:"retry"`
}

// RetryConfig defines retry behavior.
type RetryConfig struct {
	Attempts   int           `yaml:"attempts"`
	Backoff    time.Duration `yaml:"backoff"`
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

// LogConfig defines logging output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Path   string `yaml:"path"`
}

// WatchConfig defines the scheduled harvest.
type WatchConfig struct {
	Cron       string `yaml:"cron"`
	Months     int    `yaml:"months"`
	RunOnStart bool   `yaml:"run_on_start"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Category:        "cs.*",
		MaxPerMonth:     200,
		FetchWorkers:    4,
		DownloadWorkers: 10,
		Destination:     "papers",
		Catalog: CatalogConfig{
			Retries:    intPtr(3),
			RetryDelay: time.Second,
		},
		HTTP: HTTPConfig{
			Timeout:   2 * time.Minute,
			UserAgent: "paperharvest/1.0",
			Retry: RetryConfig{
				Attempts:   3,
				Backoff:    time.Second,
				MaxBackoff: 30 * time.Second,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Watch: WatchConfig{
			Cron:   "0 3 * * *",
			Months: 1,
		},
	}
}

// yamlConfig is used for YAML unmarshaling with string dates, sizes and
// durations.
type yamlConfig struct {
	StartDate       string            `yaml:"start_date"`
	EndDate         string            `yaml:"end_date"`
	Category        string            `yaml:"category"`
	MaxPerMonth     int               `yaml:"max_per_month"`
	FetchWorkers    int               `yaml:"fetch_workers"`
	DownloadWorkers int               `yaml:"download_workers"`
	Destination     string            `yaml:"destination"`
	MaxFileSize     string            `yaml:"max_file_size"`
	Progress        bool              `yaml:"progress"`
	Ledger          string            `yaml:"ledger"`
	Catalog         yamlCatalogConfig `yaml:"catalog"`
	HTTP            yamlHTTPConfig    `yaml:"http"`
	Log             LogConfig         `yaml:"log"`
	Watch           WatchConfig       `yaml:"watch"`
}

type yamlCatalogConfig struct {
	Retries    *int   `yaml:"retries"`
	RetryDelay string `yaml:"retry_delay"`
}

type yamlHTTPConfig struct {
	Timeout   string          `yaml:"timeout"`
	UserAgent string          `yaml:"user_agent"`
	Retry     yamlRetryConfig `yaml:"retry"`
}

type yamlRetryConfig struct {
	Attempts   int    `yaml:"attempts"`
	Backoff    string `yaml:"backoff"`
	MaxBackoff string `yaml:"max_backoff"`
}

// LoadFromFile loads configuration from a YAML file on top of Default.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if cfg.StartDate, err = parseDate("start_date", yc.StartDate, cfg.StartDate); err != nil {
		return Config{}, err
	}
	if cfg.EndDate, err = parseDate("end_date", yc.EndDate, cfg.EndDate); err != nil {
		return Config{}, err
	}
	if yc.Category != "" {
		cfg.Category = yc.Category
	}
	if yc.MaxPerMonth != 0 {
		cfg.MaxPerMonth = yc.MaxPerMonth
	}
	if yc.FetchWorkers != 0 {
		cfg.FetchWorkers = yc.FetchWorkers
	}
	if yc.DownloadWorkers != 0 {
		cfg.DownloadWorkers = yc.DownloadWorkers
	}
	if yc.Destination != "" {
		cfg.Destination = yc.Destination
	}
	if yc.MaxFileSize != "" {
		size, err := progress.ParseBytes(yc.MaxFileSize)
		if err != nil {
			return Config{}, fmt.Errorf("parse max_file_size: %w", err)
		}
		cfg.MaxFileSize = size
	}
	cfg.Progress = yc.Progress
	if yc.Ledger != "" {
		cfg.Ledger = yc.Ledger
	}

	if yc.Catalog.Retries != nil {
		cfg.Catalog.Retries = yc.Catalog.Retries
	}
	if cfg.Catalog.RetryDelay, err = parseDuration("catalog.retry_delay", yc.Catalog.RetryDelay, cfg.Catalog.RetryDelay); err != nil {
		return Config{}, err
	}

	if cfg.HTTP.Timeout, err = parseDuration("http.timeout", yc.HTTP.Timeout, cfg.HTTP.Timeout); err != nil {
		return Config{}, err
	}
	if yc.HTTP.UserAgent != "" {
		cfg.HTTP.UserAgent = yc.HTTP.UserAgent
	}
	if yc.HTTP.Retry.Attempts != 0 {
		cfg.HTTP.Retry.Attempts = yc.HTTP.Retry.Attempts
	}
	if cfg.HTTP.Retry.Backoff, err = parseDuration("http.retry.backoff", yc.HTTP.Retry.Backoff, cfg.HTTP.Retry.Backoff); err != nil {
		return Config{}, err
	}
	if cfg.HTTP.Retry.MaxBackoff, err = parseDuration("http.retry.max_backoff", yc.HTTP.Retry.MaxBackoff, cfg.HTTP.Retry.MaxBackoff); err != nil {
		return Config{}, err
	}

	if yc.Log.Level != "" {
		cfg.Log.Level = yc.Log.Level
	}
	if yc.Log.Format != "" {
		cfg.Log.Format = yc.Log.Format
	}
	if yc.Log.Path != "" {
		cfg.Log.Path = yc.Log.Path
	}

	if yc.Watch.Cron != "" {
		cfg.Watch.Cron = yc.Watch.Cron
	}
	if yc.Watch.Months != 0 {
		cfg.Watch.Months = yc.Watch.Months
	}
	cfg.Watch.RunOnStart = yc.Watch.RunOnStart

	return cfg, nil
}

func parseDate(field, value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	t, err := catalog.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s: %w", field, err)
	}
	return t, nil
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", field, err)
	}
	return d, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given .env files into the
// process environment. Variables already set are not overridden, and a
// missing file is not an error.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the HARVEST_ prefix.
func (c *Config) LoadFromEnv() error {
	var err error
	if c.StartDate, err = envDate("START_DATE", c.StartDate); err != nil {
		return err
	}
	if c.EndDate, err = envDate("END_DATE", c.EndDate); err != nil {
		return err
	}
	if v := os.Getenv(EnvPrefix + "CATEGORY"); v != "" {
		c.Category = v
	}
	if c.MaxPerMonth, err = envInt("MAX_PER_MONTH", c.MaxPerMonth); err != nil {
		return err
	}
	if c.FetchWorkers, err = envInt("FETCH_WORKERS", c.FetchWorkers); err != nil {
		return err
	}
	if c.DownloadWorkers, err = envInt("DOWNLOAD_WORKERS", c.DownloadWorkers); err != nil {
		return err
	}
	if v := os.Getenv(EnvPrefix + "DESTINATION"); v != "" {
		c.Destination = v
	}
	if v := os.Getenv(EnvPrefix + "MAX_FILE_SIZE"); v != "" {
		size, err := progress.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("parse %sMAX_FILE_SIZE: %w", EnvPrefix, err)
		}
		c.MaxFileSize = size
	}
	if v := os.Getenv(EnvPrefix + "PROGRESS"); v != "" {
		c.Progress = v == "true" || v == "1"
	}
	if v := os.Getenv(EnvPrefix + "LEDGER"); v != "" {
		c.Ledger = v
	}
	if v := os.Getenv(EnvPrefix + "CATALOG_RETRIES"); v != "" {
		n, err := envInt("CATALOG_RETRIES", 0)
		if err != nil {
			return err
		}
		c.Catalog.Retries = &n
	}
	if c.Catalog.RetryDelay, err = envDuration("CATALOG_RETRY_DELAY", c.Catalog.RetryDelay); err != nil {
		return err
	}
	if c.HTTP.Timeout, err = envDuration("HTTP_TIMEOUT", c.HTTP.Timeout); err != nil {
		return err
	}
	if v := os.Getenv(EnvPrefix + "HTTP_USER_AGENT"); v != "" {
		c.HTTP.UserAgent = v
	}
	if c.HTTP.Retry.Attempts, err = envInt("HTTP_RETRY_ATTEMPTS", c.HTTP.Retry.Attempts); err != nil {
		return err
	}
	if c.HTTP.Retry.Backoff, err = envDuration("HTTP_RETRY_BACKOFF", c.HTTP.Retry.Backoff); err != nil {
		return err
	}
	if c.HTTP.Retry.MaxBackoff, err = envDuration("HTTP_RETRY_MAX_BACKOFF", c.HTTP.Retry.MaxBackoff); err != nil {
		return err
	}
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_PATH"); v != "" {
		c.Log.Path = v
	}
	if v := os.Getenv(EnvPrefix + "WATCH_CRON"); v != "" {
		c.Watch.Cron = v
	}
	if c.Watch.Months, err = envInt("WATCH_MONTHS", c.Watch.Months); err != nil {
		return err
	}

	return nil
}

func intPtr(n int) *int {
	return &n
}

func envInt(name string, fallback int) (int, error) {
	v := os.Getenv(EnvPrefix + name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s%s: %w", EnvPrefix, name, err)
	}
	return n, nil
}

func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(EnvPrefix + name)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s%s: %w", EnvPrefix, name, err)
	}
	return d, nil
}

func envDate(name string, fallback time.Time) (time.Time, error) {
	v := os.Getenv(EnvPrefix + name)
	if v == "" {
		return fallback, nil
	}
	t, err := catalog.ParseDate(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s%s: %w", EnvPrefix, name, err)
	}
	return t, nil
}

// Validate validates the settings shared by every command.
func (c *Config) Validate() error {
	if c.Category == "" {
		return errors.New("config: category is required")
	}
	if c.Destination == "" {
		return errors.New("config: destination is required")
	}
	if c.MaxPerMonth <= 0 {
		return errors.New("config: max_per_month must be positive")
	}
	if c.MaxPerMonth > catalog.MaxWindowResults {
		return fmt.Errorf("config: max_per_month must not exceed %d", catalog.MaxWindowResults)
	}
	if c.FetchWorkers <= 0 {
		return errors.New("config: fetch_workers must be positive")
	}
	if c.DownloadWorkers <= 0 {
		return errors.New("config: download_workers must be positive")
	}
	if c.MaxFileSize < 0 {
		return errors.New("config: max_file_size must not be negative")
	}
	if c.Catalog.RetryCount() < 0 {
		return errors.New("config: catalog.retries must not be negative")
	}
	if c.HTTP.Timeout <= 0 {
		return errors.New("config: http.timeout must be positive")
	}
	if c.HTTP.Retry.Attempts <= 0 {
		return errors.New("config: http.retry.attempts must be positive")
	}
	if c.Watch.Months <= 0 {
		return errors.New("config: watch.months must be positive")
	}
	return nil
}

// ValidateRange checks that a date range is set and ordered.
func (c *Config) ValidateRange() error {
	if c.StartDate.IsZero() {
		return errors.New("config: start_date is required")
	}
	if c.EndDate.IsZero() {
		return errors.New("config: end_date is required")
	}
	if c.StartDate.After(c.EndDate) {
		return fmt.Errorf("config: %w", catalog.ErrInvalidRange)
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored; a nil Catalog.Retries is unset
// while a pointer to 0 disables retries.
func (c Config) Merge(override Config) Config {
	if !override.StartDate.IsZero() {
		c.StartDate = override.StartDate
	}
	if !override.EndDate.IsZero() {
		c.EndDate = override.EndDate
	}
	if override.Category != "" {
		c.Category = override.Category
	}
	if override.MaxPerMonth != 0 {
		c.MaxPerMonth = override.MaxPerMonth
	}
	if override.FetchWorkers != 0 {
		c.FetchWorkers = override.FetchWorkers
	}
	if override.DownloadWorkers != 0 {
		c.DownloadWorkers = override.DownloadWorkers
	}
	if override.Destination != "" {
		c.Destination = override.Destination
	}
	if override.MaxFileSize != 0 {
		c.MaxFileSize = override.MaxFileSize
	}
	if override.Progress {
		c.Progress = override.Progress
	}
	if override.Ledger != "" {
		c.Ledger = override.Ledger
	}
	if override.Catalog.Retries != nil {
		c.Catalog.Retries = override.Catalog.Retries
	}
	if override.Catalog.RetryDelay != 0 {
		c.Catalog.RetryDelay = override.Catalog.RetryDelay
	}
	if override.HTTP.Timeout != 0 {
		c.HTTP.Timeout = override.HTTP.Timeout
	}
	if override.HTTP.UserAgent != "" {
		c.HTTP.UserAgent = override.HTTP.UserAgent
	}
	if override.HTTP.Retry.Attempts != 0 {
		c.HTTP.Retry.Attempts = override.HTTP.Retry.Attempts
	}
	if override.HTTP.Retry.Backoff != 0 {
		c.HTTP.Retry.Backoff = override.HTTP.Retry.Backoff
	}
	if override.HTTP.Retry.MaxBackoff != 0 {
		c.HTTP.Retry.MaxBackoff = override.HTTP.Retry.MaxBackoff
	}
	if override.Log.Level != "" {
		c.Log.Level = override.Log.Level
	}
	if override.Log.Format != "" {
		c.Log.Format = override.Log.Format
	}
	if override.Log.Path != "" {
		c.Log.Path = override.Log.Path
	}
	if override.Watch.Cron != "" {
		c.Watch.Cron = override.Watch.Cron
	}
	if override.Watch.Months != 0 {
		c.Watch.Months = override.Watch.Months
	}
	if override.Watch.RunOnStart {
		c.Watch.RunOnStart = true
	}
	return c
}
