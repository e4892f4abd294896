package services

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/libstats/internal/models"
	"github.com/desertthunder/libstats/internal/shared"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// MaxPageSize is the largest limit the saved-tracks endpoint accepts.
const MaxPageSize = 50

// MaxCollectionSize bounds the total a first page may announce.
const MaxCollectionSize = 1 << 20

// Paginator retrieves every record of a paged collection and caches completed runs per resource.
type Paginator struct {
	client      JSONGetter
	concurrency int
	logger      *log.Logger

	mu    sync.RWMutex
	cache map[string][]models.Record
	runs  singleflight.Group
}

// NewPaginator creates a [Paginator] that keeps at most concurrency page requests in flight.
func NewPaginator(client JSONGetter, concurrency int, logger *log.Logger) *Paginator {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Paginator{
		client:      client,
		concurrency: concurrency,
		logger:      shared.WithLogger(logger, "component", "paginator"),
		cache:       map[string][]models.Record{},
	}
}

// FetchAll returns the full collection at resourceURL, in offset order.
//
// The first page (offset 0) reveals the total; the remaining ceil(total/pageSize)-1 pages are fetched
// concurrently and reassembled by offset. If any page fails, nothing is returned and the error wraps
// [shared.ErrPagination]. A completed run is cached: later calls for the same resourceURL issue no requests.
// Calls racing on the same uncached resource share one run. The run is detached from every caller's
// cancellation; a caller whose ctx ends stops waiting and gets ctx.Err(), the others keep waiting.
func (p *Paginator) FetchAll(ctx context.Context, resourceURL string, pageSize int) ([]models.Record, error) {
	if pageSize < 1 || pageSize > MaxPageSize {
		return nil, fmt.Errorf("%w: page size must be between 1 and %d, got %d", shared.ErrInvalidArgument, MaxPageSize, pageSize)
	}

	if records, ok := p.cached(resourceURL); ok {
		p.logger.Debug("serving cached collection", "resource", resourceURL, "records", len(records))
		return slices.Clone(records), nil
	}

	detached := context.WithoutCancel(ctx)
	ch := p.runs.DoChan(resourceURL, func() (any, error) {
		if records, ok := p.cached(resourceURL); ok {
			return records, nil
		}

		records, err := p.run(detached, resourceURL, pageSize)
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		p.cache[resourceURL] = records
		p.mu.Unlock()
		return records, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]models.Record)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cached reports whether a completed run for resourceURL is cached.
func (p *Paginator) Cached(resourceURL string) bool {
	_, ok := p.cached(resourceURL)
	return ok
}

func (p *Paginator) cached(resourceURL string) ([]models.Record, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	records, ok := p.cache[resourceURL]
	return records, ok
}

func (p *Paginator) run(ctx context.Context, resourceURL string, pageSize int) ([]models.Record, error) {
	first, err := p.fetchPage(ctx, resourceURL, pageSize, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: page at offset 0: %w", shared.ErrPagination, err)
	}

	total := first.total
	switch {
	case total < 0:
		return nil, fmt.Errorf("%w: negative total %d", shared.ErrPagination, total)
	case total > MaxCollectionSize:
		return nil, fmt.Errorf("%w: total %d exceeds %d", shared.ErrPagination, total, MaxCollectionSize)
	case len(first.records) > pageSize:
		return nil, fmt.Errorf("%w: first page holds %d items, limit was %d", shared.ErrPagination, len(first.records), pageSize)
	case len(first.records) > total:
		return nil, fmt.Errorf("%w: first page holds %d items, total is %d", shared.ErrPagination, len(first.records), total)
	}

	pageCount := (total + pageSize - 1) / pageSize
	p.logger.Info("collection size learned", "resource", resourceURL, "total", total, "pages", pageCount)

	pages := make([][]models.Record, max(pageCount, 1))
	pages[0] = first.records

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i := 1; i < pageCount; i++ {
		offset := i * pageSize
		g.Go(func() error {
			page, err := p.fetchPage(gctx, resourceURL, pageSize, offset)
			if err != nil {
				return fmt.Errorf("page at offset %d: %w", offset, err)
			}
			if page.total != total {
				return fmt.Errorf("page at offset %d: inconsistent total %d, first page reported %d", offset, page.total, total)
			}
			if len(page.records) > pageSize {
				return fmt.Errorf("page at offset %d: holds %d items, limit was %d", offset, len(page.records), pageSize)
			}
			pages[i] = page.records
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		p.logger.Error("pagination run failed", "resource", resourceURL, "error", err)
		return nil, fmt.Errorf("%w: %w", shared.ErrPagination, err)
	}

	size := 0
	for _, page := range pages {
		size += len(page)
	}
	records := make([]models.Record, 0, size)
	for _, page := range pages {
		records = append(records, page...)
	}
	return records, nil
}

type page struct {
	records []models.Record
	total   int
}

func (p *Paginator) fetchPage(ctx context.Context, resourceURL string, limit, offset int) (*page, error) {
	pageURL, err := withPage(resourceURL, limit, offset)
	if err != nil {
		return nil, err
	}

	var resp SpotifyPaginatedTracks
	if err := p.client.GetJSON(ctx, pageURL, &resp); err != nil {
		return nil, err
	}

	records, err := resp.Records()
	if err != nil {
		return nil, err
	}

	p.logger.Debug("page fetched", "offset", offset, "items", len(records))
	return &page{records: records, total: resp.Total}, nil
}

func withPage(resourceURL string, limit, offset int) (string, error) {
	u, err := url.Parse(resourceURL)
	if err != nil {
		return "", fmt.Errorf("%w: resource url %q: %v", shared.ErrInvalidArgument, resourceURL, err)
	}

	q := u.Query()
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
