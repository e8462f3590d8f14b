package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ligustah/paperharvest/internal/catalog"
	"github.com/ligustah/paperharvest/internal/config"
	"github.com/ligustah/paperharvest/internal/downloader"
	"github.com/ligustah/paperharvest/internal/harvest"
	harvesthttp "github.com/ligustah/paperharvest/internal/http"
	"github.com/ligustah/paperharvest/internal/ledger"
	"github.com/ligustah/paperharvest/internal/logger"
	"github.com/ligustah/paperharvest/internal/storage"
)

// newSearcher builds the catalog backend. Replaced in tests.
var newSearcher = func() (catalog.Searcher, error) {
	return catalog.NewArxivSearcher()
}

// exitError carries the exit code for a failed setup step.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitGeneralError
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(stderr, "\n[harvest] Received interrupt, shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

func newLogger(cfg config.Config) *logger.Logger {
	return logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Path:   cfg.Log.Path,
		Output: stderr,
	})
}

// pipeline holds everything a harvest run needs.
type pipeline struct {
	store     *storage.Store
	ledger    *ledger.Ledger
	harvester *harvest.Harvester
}

func openPipeline(ctx context.Context, cfg config.Config, log *logger.Logger) (*pipeline, error) {
	searcher, err := newSearcher()
	if err != nil {
		return nil, &exitError{ExitCatalogError, err}
	}

	store, err := storage.Open(ctx, cfg.Destination)
	if err != nil {
		return nil, &exitError{ExitStorageError, err}
	}

	p := &pipeline{store: store}

	if cfg.Ledger != "" {
		l, err := ledger.Open(cfg.Ledger)
		if err != nil {
			store.Close()
			return nil, &exitError{ExitLedgerError, err}
		}
		p.ledger = l
	}

	fetcher := catalog.NewFetcher(searcher, catalog.FetcherOptions{
		Category:   cfg.Category,
		Retries:    cfg.Catalog.RetryCount(),
		RetryDelay: cfg.Catalog.RetryDelay,
	}, log.Logger)

	client := harvesthttp.NewClient(harvesthttp.Options{
		MaxIdleConnsPerHost: cfg.DownloadWorkers * 2,
		Timeout:             cfg.HTTP.Timeout,
		RetryAttempts:       cfg.HTTP.Retry.Attempts,
		RetryBackoff:        cfg.HTTP.Retry.Backoff,
		RetryMaxBackoff:     cfg.HTTP.Retry.MaxBackoff,
		UserAgent:           cfg.HTTP.UserAgent,
	})

	dl := downloader.New(client, store, downloader.Options{
		Workers:     cfg.DownloadWorkers,
		MaxFileSize: cfg.MaxFileSize,
		Output:      progressOutput(cfg),
	}, log.Logger)

	p.harvester = harvest.New(fetcher, dl, log.Logger)
	if p.ledger != nil {
		p.harvester.SetRecorder(p.ledger)
	}
	return p, nil
}

func (p *pipeline) Close() {
	if p.ledger != nil {
		p.ledger.Close()
	}
	p.store.Close()
}

func progressOutput(cfg config.Config) io.Writer {
	if cfg.Progress {
		return stderr
	}
	return nil
}

func harvestOptions(cfg config.Config) harvest.Options {
	return harvest.Options{
		Start:        cfg.StartDate,
		End:          cfg.EndDate,
		MaxPerMonth:  cfg.MaxPerMonth,
		FetchWorkers: cfg.FetchWorkers,
		Output:       progressOutput(cfg),
	}
}

// printSummary prints one line per month and the totals.
func printSummary(w io.Writer, store *storage.Store, result *harvest.Result) {
	for _, month := range result.Months.Keys() {
		fmt.Fprintf(w, "Month: %s, Papers: %d, Location: %s\n",
			month, len(result.Months[month]), store.Location(month))
	}

	r := result.Report
	fmt.Fprintf(w, "Total: %d papers in %d months | %d downloaded, %d skipped, %d failed | %s\n",
		result.Months.Total(), len(result.Months), r.Downloaded, r.Skipped, r.Failed, formatBytes(r.Bytes))
	fmt.Fprintf(w, "Run: %s\n", result.RunID)

	for _, f := range r.Failures() {
		fmt.Fprintf(stderr, "[harvest] Failed: %q (%s): %v\n", f.Item.Title, f.Key, f.Err)
	}
}
