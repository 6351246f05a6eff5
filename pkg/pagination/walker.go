package pagination

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/Sternrassler/gitdata/pkg/logging"
)

// ErrPageLoop is returned when a next link points back to a page already fetched.
var ErrPageLoop = errors.New("pagination loop detected")

// PageFetcher is the interface the API client implements for single-page fetching.
type PageFetcher interface {
	// FetchPage fetches one page (endpoint path or absolute URL) and returns
	// its body together with the parsed Link header.
	FetchPage(ctx context.Context, pageURL string, headers http.Header) (data []byte, links Links, err error)
}

// Walker follows next links across all pages of an endpoint.
type Walker struct {
	fetcher  PageFetcher
	maxPages int
	logger   zerolog.Logger
}

// Option configures a Walker.
type Option func(*Walker)

// WithMaxPages stops a walk after n pages. Zero means no limit.
func WithMaxPages(n int) Option {
	return func(w *Walker) {
		if n > 0 {
			w.maxPages = n
		}
	}
}

// NewWalker creates a new walker on top of fetcher.
func NewWalker(fetcher PageFetcher, opts ...Option) *Walker {
	w := &Walker{
		fetcher: fetcher,
		logger:  logging.NewLogger("pagination"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Walk fetches the first page of endpoint and every page after it, calling
// fn for each page body in order. Walk stops at the first error.
func (w *Walker) Walk(ctx context.Context, endpoint string, headers http.Header, fn func(page int, data []byte) error) error {
	seen := make(map[string]bool)
	next := endpoint

	for page := 1; next != ""; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if seen[next] {
			return fmt.Errorf("%w: %s", ErrPageLoop, next)
		}
		seen[next] = true

		data, links, err := w.fetcher.FetchPage(ctx, next, headers)
		if err != nil {
			return fmt.Errorf("fetch page %d: %w", page, err)
		}

		w.logger.Debug().
			Str("endpoint", endpoint).
			Int("page", page).
			Int("total_pages", links.TotalPages()).
			Msgf("processing page %d of %d", page, max(links.TotalPages(), page))

		if err := fn(page, data); err != nil {
			return err
		}

		if w.maxPages > 0 && page >= w.maxPages {
			w.logger.Debug().Int("max_pages", w.maxPages).Msg("page limit reached")
			return nil
		}
		next = links.Next.URL
	}

	return nil
}

// Collect returns the bodies of all pages of endpoint.
func (w *Walker) Collect(ctx context.Context, endpoint string, headers http.Header) ([][]byte, error) {
	var pages [][]byte
	err := w.Walk(ctx, endpoint, headers, func(_ int, data []byte) error {
		pages = append(pages, data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pages, nil
}

// Count estimates the number of items behind endpoint from the first and
// last page only: every page but the last is assumed to be as full as the
// first one.
func (w *Walker) Count(ctx context.Context, endpoint string, headers http.Header) (int, error) {
	data, links, err := w.fetcher.FetchPage(ctx, endpoint, headers)
	if err != nil {
		return 0, fmt.Errorf("fetch first page: %w", err)
	}
	first := ItemCount(data)

	if links.Last.IsZero() || links.Last.Page <= 1 {
		return first, nil
	}

	lastData, _, err := w.fetcher.FetchPage(ctx, links.Last.URL, headers)
	if err != nil {
		return 0, fmt.Errorf("fetch last page: %w", err)
	}
	last := ItemCount(lastData)

	return last + (links.Last.Page-1)*first, nil
}

// ItemCount returns the number of items in a page body: the length of a JSON
// array, 1 for any other JSON value, 0 for an empty body or null.
func ItemCount(data []byte) int {
	result := gjson.ParseBytes(data)
	switch {
	case !result.Exists(), result.Type == gjson.Null:
		return 0
	case result.IsArray():
		return int(result.Get("#").Int())
	default:
		return 1
	}
}
