// Package harvest runs the month-range pipeline: partition a date range
// into month windows, fetch every window with a bounded worker pool, then
// download everything that was found.
package harvest

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ligustah/paperharvest/internal/catalog"
	"github.com/ligustah/paperharvest/internal/downloader"
	"github.com/ligustah/paperharvest/internal/progress"
)

// ErrInvalidOptions is returned for options that cannot describe a run.
var ErrInvalidOptions = errors.New("harvest: invalid options")

// WindowFetcher fetches the items of one window. It must not fail: a
// window that cannot be fetched yields an empty slice.
type WindowFetcher interface {
	Fetch(ctx context.Context, w catalog.Window) (string, []catalog.Item)
}

// BatchDownloader downloads a batch of items.
type BatchDownloader interface {
	Batch(ctx context.Context, items []catalog.Item) *downloader.Report
}

// Recorder persists finished runs.
type Recorder interface {
	RecordRun(ctx context.Context, result *Result) error
}

// Options describes one run.
type Options struct {
	Start time.Time
	End   time.Time

	// MaxPerMonth caps the items requested per window. Default: 200
	MaxPerMonth int

	// FetchWorkers is the number of concurrent window fetches. Default: 4
	FetchWorkers int

	// Output receives the fetch progress display. Nil disables it.
	Output io.Writer

	// UpdateInterval is how often progress is redrawn.
	UpdateInterval time.Duration
}

// Result is the outcome of a run.
type Result struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Options    Options
	Windows    []catalog.Window
	Months     catalog.MonthBucket
	Report     *downloader.Report
}

// Harvester wires the fetch and download stages together.
type Harvester struct {
	fetcher    WindowFetcher
	downloader BatchDownloader
	recorder   Recorder
	logger     zerolog.Logger
}

// New creates a Harvester.
func New(fetcher WindowFetcher, dl BatchDownloader, logger zerolog.Logger) *Harvester {
	return &Harvester{
		fetcher:    fetcher,
		downloader: dl,
		logger:     logger.With().Str("component", "harvest").Logger(),
	}
}

// SetRecorder attaches a recorder that receives every finished run.
func (h *Harvester) SetRecorder(r Recorder) {
	h.recorder = r
}

// Run executes the pipeline. It only fails for structural problems such as
// an inverted date range; failed windows and downloads are reported in the
// Result instead.
func (h *Harvester) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.MaxPerMonth == 0 {
		opts.MaxPerMonth = 200
	}
	if opts.FetchWorkers == 0 {
		opts.FetchWorkers = 4
	}
	if opts.MaxPerMonth < 0 || opts.FetchWorkers < 0 {
		return nil, ErrInvalidOptions
	}

	windows, err := catalog.Months(opts.Start, opts.End, opts.MaxPerMonth)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Options:   opts,
		Windows:   windows,
	}
	logger := h.logger.With().Str("run", result.RunID).Logger()

	logger.Info().
		Str("start", opts.Start.Format("2006-01-02")).
		Str("end", opts.End.Format("2006-01-02")).
		Int("windows", len(windows)).
		Int("maxPerMonth", opts.MaxPerMonth).
		Msg("Starting harvest")

	months, items := h.fetchAll(ctx, windows, opts)
	result.Months = months

	logger.Info().
		Int("papers", len(items)).
		Msg("Starting parallel downloads")

	result.Report = h.downloader.Batch(ctx, items)
	result.FinishedAt = time.Now()

	logger.Info().
		Int("downloaded", result.Report.Downloaded).
		Int("skipped", result.Report.Skipped).
		Int("failed", result.Report.Failed).
		Dur("duration", result.FinishedAt.Sub(result.StartedAt)).
		Msg("Harvest completed")

	if h.recorder != nil {
		if err := h.recorder.RecordRun(ctx, result); err != nil {
			logger.Error().Err(err).Msg("Failed to record run")
		}
	}

	return result, nil
}

// fetchAll fetches every window with at most opts.FetchWorkers in flight.
// Results are merged in completion order by this goroutine only.
func (h *Harvester) fetchAll(ctx context.Context, windows []catalog.Window, opts Options) (catalog.MonthBucket, []catalog.Item) {
	type fetched struct {
		key   string
		items []catalog.Item
	}

	tracker := progress.NewTracker(progress.Options{
		Label:          "Fetching papers",
		Unit:           "month",
		Total:          len(windows),
		Output:         opts.Output,
		UpdateInterval: opts.UpdateInterval,
	})
	tracker.Start()
	defer tracker.Close()

	jobs := make(chan catalog.Window)
	results := make(chan fetched)

	var wg sync.WaitGroup
	for w := 0; w < opts.FetchWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for window := range jobs {
				key, items := h.fetcher.Fetch(ctx, window)
				results <- fetched{key: key, items: items}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, window := range windows {
			jobs <- window
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	months := make(catalog.MonthBucket, len(windows))
	for _, window := range windows {
		months[window.Key()] = []catalog.Item{}
	}

	var all []catalog.Item
	for r := range results {
		months[r.key] = append(months[r.key], r.items...)
		all = append(all, r.items...)
		tracker.Advance()
	}

	return months, all
}
