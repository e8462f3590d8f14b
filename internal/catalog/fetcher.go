package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

// Query is a single catalog search.
type Query struct {
	// Expression uses the arXiv search syntax, e.g.
	// cat:cs.* AND submittedDate:[202201010000 TO 202201312359].
	Expression string

	// MaxResults caps the number of returned items.
	MaxResults int
}

// Searcher runs catalog queries. The Fetcher retries failed searches
// unless the error wraps ErrInvalidQuery.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Item, error)
}

// FetcherOptions configures a Fetcher.
type FetcherOptions struct {
	// Category is the arXiv category filter. Default: "cs.*"
	Category string

	// Retries is the number of retries after a failed search.
	// Default: 3. Negative disables retries.
	Retries int

	// RetryDelay is the fixed delay between attempts. Default: 1s
	RetryDelay time.Duration
}

// DefaultFetcherOptions returns the options used by the CLI.
func DefaultFetcherOptions() FetcherOptions {
	return FetcherOptions{
		Category:   "cs.*",
		Retries:    3,
		RetryDelay: time.Second,
	}
}

// Fetcher fetches the items of one window.
type Fetcher struct {
	searcher Searcher
	opts     FetcherOptions
	logger   zerolog.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(searcher Searcher, opts FetcherOptions, logger zerolog.Logger) *Fetcher {
	if opts.Category == "" {
		opts.Category = "cs.*"
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}

	return &Fetcher{
		searcher: searcher,
		opts:     opts,
		logger:   logger.With().Str("component", "fetcher").Logger(),
	}
}

// BuildQuery returns the search expression selecting category submissions
// inside w, both ends inclusive.
func BuildQuery(category string, w Window) string {
	return fmt.Sprintf("cat:%s AND submittedDate:[%s0000 TO %s2359]",
		category,
		w.Start.Format("20060102"),
		w.End.Format("20060102"),
	)
}

// Fetch returns the month key of w and its items, newest first.
// A window that still fails after all retries is logged and yields no
// items; Fetch never fails the caller.
func (f *Fetcher) Fetch(ctx context.Context, w Window) (string, []Item) {
	key := w.Key()
	q := Query{
		Expression: BuildQuery(f.opts.Category, w),
		MaxResults: w.Limit,
	}

	var items []Item
	attempt := 0
	backoff := retry.WithMaxRetries(uint64(f.opts.Retries), retry.NewConstant(f.opts.RetryDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		result, err := f.searcher.Search(ctx, q)
		if err != nil {
			f.logger.Warn().
				Err(err).
				Str("month", key).
				Int("attempt", attempt).
				Msg("Catalog search failed")
			if errors.Is(err, ErrInvalidQuery) {
				return err
			}
			return retry.RetryableError(err)
		}
		items = result
		return nil
	})
	if err != nil {
		f.logger.Error().
			Err(err).
			Str("month", key).
			Str("query", q.Expression).
			Msg("Error fetching papers")
		return key, nil
	}

	slices.SortStableFunc(items, func(a, b Item) int {
		return b.Published.Compare(a.Published)
	})
	if w.Limit > 0 && len(items) > w.Limit {
		items = items[:w.Limit]
	}

	f.logger.Info().
		Str("month", key).
		Int("count", len(items)).
		Msg("Fetched papers")

	return key, items
}
