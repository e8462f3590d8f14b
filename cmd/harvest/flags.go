package main

import (
	"flag"
	"fmt"
	"strconv"

	"github.com/ligustah/paperharvest/internal/catalog"
	"github.com/ligustah/paperharvest/internal/config"
	"github.com/ligustah/paperharvest/internal/progress"
)

// configFlags are the flags shared by commands that build a pipeline.
// Unset flags keep the value from the config file or environment.
type configFlags struct {
	configPath      string
	envFile         string
	start           string
	end             string
	category        string
	maxPerMonth     int
	fetchWorkers    int
	downloadWorkers int
	dest            string
	maxFileSize     string
	progress        bool
	ledger          string
	catalogRetries  *int
	logLevel        string
	logFormat       string
	logPath         string
}

func (f *configFlags) register(fs *flag.FlagSet, withRange bool) {
	fs.StringVar(&f.configPath, "config", "", "YAML config file")
	fs.StringVar(&f.envFile, "env-file", ".env", "Environment file loaded before HARVEST_ variables are read")
	if withRange {
		fs.StringVar(&f.start, "start", "", "First day of the range, YYYY-MM-DD")
		fs.StringVar(&f.end, "end", "", "Last day of the range, YYYY-MM-DD")
	}
	fs.StringVar(&f.category, "category", "", "arXiv category filter (default cs.*)")
	fs.IntVar(&f.maxPerMonth, "max-per-month", 0, "Max papers per month (default 200)")
	fs.IntVar(&f.fetchWorkers, "fetch-workers", 0, "Concurrent month fetches (default 4)")
	fs.IntVar(&f.downloadWorkers, "download-workers", 0, "Concurrent downloads (default 10)")
	fs.StringVar(&f.dest, "dest", "", "Destination directory or bucket URL (default papers)")
	fs.StringVar(&f.maxFileSize, "max-file-size", "", "Reject PDFs larger than this, e.g. 50MB")
	fs.BoolVar(&f.progress, "progress", false, "Show progress output")
	fs.StringVar(&f.ledger, "ledger", "", "SQLite run ledger path (disabled when empty)")
	fs.Func("catalog-retries", "Retries per failed month search, 0 disables (default 3)", func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		f.catalogRetries = &n
		return nil
	})
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "", "Log format: console or json")
	fs.StringVar(&f.logPath, "log-path", "", "Directory for rotated log files")
}

// load resolves configuration: defaults, file, .env and environment, then
// flags.
func (f *configFlags) load() (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.LoadFromFile(f.configPath); err != nil {
			return config.Config{}, err
		}
	}

	if f.envFile != "" {
		if err := config.LoadDotEnv(f.envFile); err != nil {
			return config.Config{}, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}

	override := config.Config{
		Category:        f.category,
		MaxPerMonth:     f.maxPerMonth,
		FetchWorkers:    f.fetchWorkers,
		DownloadWorkers: f.downloadWorkers,
		Destination:     f.dest,
		Progress:        f.progress,
		Ledger:          f.ledger,
		Catalog:         config.CatalogConfig{Retries: f.catalogRetries},
		Log: config.LogConfig{
			Level:  f.logLevel,
			Format: f.logFormat,
			Path:   f.logPath,
		},
	}
	if f.start != "" {
		t, err := catalog.ParseDate(f.start)
		if err != nil {
			return config.Config{}, fmt.Errorf("-start: %w", err)
		}
		override.StartDate = t
	}
	if f.end != "" {
		t, err := catalog.ParseDate(f.end)
		if err != nil {
			return config.Config{}, fmt.Errorf("-end: %w", err)
		}
		override.EndDate = t
	}
	if f.maxFileSize != "" {
		size, err := progress.ParseBytes(f.maxFileSize)
		if err != nil {
			return config.Config{}, fmt.Errorf("-max-file-size: %w", err)
		}
		override.MaxFileSize = size
	}

	cfg = cfg.Merge(override)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
