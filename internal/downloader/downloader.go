package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ligustah/paperharvest/internal/catalog"
	harvesthttp "github.com/ligustah/paperharvest/internal/http"
	"github.com/ligustah/paperharvest/internal/progress"
)

const pdfContentType = "application/pdf"

var (
	// ErrNameCollision is returned for an item whose storage key is already
	// claimed by a different item earlier in the same batch.
	ErrNameCollision = errors.New("downloader: name collides with another item in the batch")

	// ErrTooLarge is returned when a payload exceeds Options.MaxFileSize.
	ErrTooLarge = errors.New("downloader: payload exceeds size limit")

	// ErrNoLocator is returned for items without a download URL.
	ErrNoLocator = errors.New("downloader: item has no download URL")
)

// Getter fetches a payload over the network.
type Getter interface {
	Get(ctx context.Context, url string) (*harvesthttp.Response, error)
}

// Store is where payloads are written.
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	Write(ctx context.Context, key string, r io.Reader, contentType string) (int64, error)
}

// Options configures the downloader.
type Options struct {
	// Workers is the number of parallel download workers. Default: 10
	Workers int

	// MaxFileSize rejects payloads larger than this many bytes.
	// Zero means no limit.
	MaxFileSize int64

	// Output receives the batch progress display. Nil disables it.
	Output io.Writer

	// UpdateInterval is how often progress is redrawn.
	UpdateInterval time.Duration
}

// Downloader stores catalog items' documents, skipping those already stored.
type Downloader struct {
	client Getter
	store  Store
	opts   Options
	logger zerolog.Logger
}

// New creates a Downloader.
func New(client Getter, store Store, opts Options, logger zerolog.Logger) *Downloader {
	if opts.Workers <= 0 {
		opts.Workers = 10
	}

	return &Downloader{
		client: client,
		store:  store,
		opts:   opts,
		logger: logger.With().Str("component", "downloader").Logger(),
	}
}

// Download stores one item. It reports to tracker exactly once and never
// returns an error directly: failures are carried in the Result.
func (d *Downloader) Download(ctx context.Context, item catalog.Item, tracker *progress.Tracker) Result {
	res := d.download(ctx, item, Key(item))
	d.finish(res, tracker)
	return res
}

// Batch downloads items with at most Options.Workers in flight and returns
// once every item has been attempted. Results are in input order.
func (d *Downloader) Batch(ctx context.Context, items []catalog.Item) *Report {
	tracker := progress.NewTracker(progress.Options{
		Label:          "Downloading papers",
		Unit:           "paper",
		Total:          len(items),
		Output:         d.opts.Output,
		UpdateInterval: d.opts.UpdateInterval,
	})
	tracker.Start()
	defer tracker.Close()

	results := make([]Result, len(items))
	keys := make([]string, len(items))
	owner := make(map[string]int, len(items))
	for i, item := range items {
		keys[i] = Key(item)
		if _, ok := owner[keys[i]]; !ok {
			owner[keys[i]] = i
		}
	}

	jobs := make(chan int, d.opts.Workers)
	var wg sync.WaitGroup

	for w := 0; w < d.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = d.download(ctx, items[i], keys[i])
				d.finish(results[i], tracker)
			}
		}()
	}

	var duplicates []int
	for i, item := range items {
		first := owner[keys[i]]
		if first == i {
			jobs <- i
			continue
		}
		if items[first].ID != "" && items[first].ID == item.ID {
			duplicates = append(duplicates, i)
			continue
		}

		res := Result{Item: item, Key: keys[i], Status: StatusFailed}
		res.Err = fmt.Errorf("%w: %q is also the name of %q", ErrNameCollision, keys[i], items[first].Title)
		results[i] = res
		d.finish(res, tracker)
	}
	close(jobs)

	wg.Wait()

	// A repeated item shares its first occurrence's file: it is present
	// when that download succeeded and failed with the same error otherwise.
	for _, i := range duplicates {
		ownerRes := results[owner[keys[i]]]
		res := Result{Item: items[i], Key: keys[i], Status: StatusSkipped}
		if !ownerRes.Success() {
			res.Status = StatusFailed
			res.Err = ownerRes.Err
		}
		results[i] = res
		d.finish(res, tracker)
	}

	return newReport(results)
}

// download performs one attempt without reporting it.
func (d *Downloader) download(ctx context.Context, item catalog.Item, key string) Result {
	res := Result{Item: item, Key: key}
	fail := func(err error) Result {
		res.Status = StatusFailed
		res.Err = err
		return res
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	exists, err := d.store.Exists(ctx, key)
	if err != nil {
		return fail(err)
	}
	if exists {
		res.Status = StatusSkipped
		return res
	}

	if item.PDFURL == "" {
		return fail(ErrNoLocator)
	}

	resp, err := d.client.Get(ctx, item.PDFURL)
	if err != nil {
		return fail(fmt.Errorf("fetch %s: %w", item.PDFURL, err))
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if limit := d.opts.MaxFileSize; limit > 0 {
		if resp.ContentLength > limit {
			return fail(fmt.Errorf("%w: %s > %s", ErrTooLarge,
				progress.FormatBytes(resp.ContentLength), progress.FormatBytes(limit)))
		}
		body = &limitReader{r: resp.Body, remaining: limit}
	}

	n, err := d.store.Write(ctx, key, body, pdfContentType)
	if err != nil {
		return fail(err)
	}
	res.Bytes = n

	res.Status = StatusDownloaded
	return res
}

// finish logs res and reports it to tracker.
func (d *Downloader) finish(res Result, tracker *progress.Tracker) {
	switch {
	case res.Status == StatusDownloaded:
		d.logger.Debug().
			Str("title", res.Item.Title).
			Str("key", res.Key).
			Int64("bytes", res.Bytes).
			Msg("Downloaded paper")
	case res.Status == StatusSkipped:
		d.logger.Debug().
			Str("title", res.Item.Title).
			Str("key", res.Key).
			Msg("Paper already present")
	case errors.Is(res.Err, ErrNameCollision):
		d.logger.Warn().
			Err(res.Err).
			Str("title", res.Item.Title).
			Str("key", res.Key).
			Msg("Skipping paper with colliding file name")
	default:
		d.logger.Error().
			Err(res.Err).
			Str("title", res.Item.Title).
			Str("key", res.Key).
			Msg("Error downloading paper")
	}

	if tracker == nil {
		return
	}
	if !res.Success() {
		tracker.Fail()
	}
	tracker.AddBytes(res.Bytes)
	tracker.Advance()
}

// limitReader fails with ErrTooLarge once more than remaining bytes are read.
type limitReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrTooLarge
	}
	return n, err
}
