package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mtreilly/goarxiv"
)

const (
	arxivPDFBase = "https://arxiv.org/pdf/"

	// arxivPageSize is the number of results requested per API call.
	arxivPageSize = 100

	// MaxWindowResults is the most items the arXiv API returns for a
	// single query, across all pages.
	MaxWindowResults = goarxiv.MaxResultsTotal
)

// ErrInvalidQuery is returned for queries the catalog will never accept.
// The Fetcher does not retry them.
var ErrInvalidQuery = errors.New("invalid catalog query")

// ArxivSearcher runs queries against the arXiv API, newest submissions
// first. Request pacing is handled by the goarxiv client.
type ArxivSearcher struct {
	client   *goarxiv.Client
	pageSize int
}

// NewArxivSearcher creates an arXiv-backed Searcher.
func NewArxivSearcher() (*ArxivSearcher, error) {
	client, err := goarxiv.New()
	if err != nil {
		return nil, fmt.Errorf("create arxiv client: %w", err)
	}
	return newArxivSearcher(client, arxivPageSize), nil
}

func newArxivSearcher(client *goarxiv.Client, pageSize int) *ArxivSearcher {
	if pageSize <= 0 || pageSize > goarxiv.MaxResultsPerRequest {
		pageSize = arxivPageSize
	}
	return &ArxivSearcher{client: client, pageSize: pageSize}
}

// Search implements Searcher. Results are paged until q.MaxResults items
// were read or the query is exhausted.
func (s *ArxivSearcher) Search(ctx context.Context, q Query) ([]Item, error) {
	if q.MaxResults <= 0 || q.MaxResults > MaxWindowResults {
		return nil, fmt.Errorf("%w: max results %d not in 1..%d", ErrInvalidQuery, q.MaxResults, MaxWindowResults)
	}

	articles, err := s.client.SearchAll(ctx, q.Expression, q.MaxResults, &goarxiv.SearchOptions{
		MaxResults: min(s.pageSize, q.MaxResults),
		SortBy:     goarxiv.SortBySubmittedDate,
		SortOrder:  goarxiv.SortOrderDescending,
	})
	if err != nil {
		return nil, fmt.Errorf("arxiv search: %w", err)
	}

	items := make([]Item, 0, len(articles))
	for _, article := range articles {
		id := articleID(article.ID)
		items = append(items, Item{
			ID:        id,
			Title:     normalizeSpace(article.Title),
			Summary:   normalizeSpace(article.Summary),
			Published: article.Published,
			PDFURL:    arxivPDFBase + id,
		})
	}
	return items, nil
}

// articleID reduces an Atom entry id such as
// http://arxiv.org/abs/2201.00001v2 to the unversioned identifier.
func articleID(raw string) string {
	id := strings.TrimSpace(raw)
	if i := strings.Index(id, "/abs/"); i >= 0 {
		id = id[i+len("/abs/"):]
	}
	if base, _, err := goarxiv.ParseArxivID(id); err == nil {
		return base
	}
	return id
}

// normalizeSpace collapses the line breaks and indentation arXiv puts in
// titles and abstracts.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
