// package tasks runs the fetch → order → aggregate pipeline over a user's saved tracks.
//
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/libstats/internal/models"
	"github.com/desertthunder/libstats/internal/shared"
	"github.com/desertthunder/libstats/internal/stats"
)

// Collector retrieves a whole paged collection. Implemented by services.Paginator.
type Collector interface {
	FetchAll(ctx context.Context, resourceURL string, pageSize int) ([]models.Record, error)
	Cached(resourceURL string) bool
}

// RunResult is the outcome of one [Pipeline.Run].
type RunResult struct {
	Policy      stats.Policy        // Policy the records were bucketed by
	Records     int                 // Saved tracks considered
	Frequencies *stats.FrequencyMap // Ordered bucket counts
	Elapsed     time.Duration       // Wall time of the run
}

// Pipeline glues the collector and the aggregator together.
type Pipeline struct {
	collector   Collector
	aggregator  *stats.Aggregator
	resourceURL string
	pageSize    int
	logger      *log.Logger
}

// NewPipeline creates a [Pipeline] reading resourceURL pageSize records at a time.
func NewPipeline(collector Collector, aggregator *stats.Aggregator, resourceURL string, pageSize int, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Pipeline{
		collector:   collector,
		aggregator:  aggregator,
		resourceURL: resourceURL,
		pageSize:    pageSize,
		logger:      shared.WithLogger(logger, "component", "pipeline"),
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Records returns every saved track, oldest first. Repeated calls are served from the collector's cache.
func (p *Pipeline) Records(ctx context.Context, progress chan<- ProgressUpdate) ([]models.Record, error) {
	if p.collector == nil {
		return nil, fmt.Errorf("%w: collector not initialized", shared.ErrServiceUnavailable)
	}

	sendProgress(progress, fetchingTracksUpdate(p.collector.Cached(p.resourceURL)))

	records, err := p.collector.FetchAll(ctx, p.resourceURL, p.pageSize)
	if err != nil {
		return nil, err
	}
	sendProgress(progress, fetchedTracksUpdate(len(records)))

	sendProgress(progress, sortRecordsUpdate(len(records)))
	return stats.OldestFirst(records), nil
}

// Run fetches the saved tracks and buckets them by policy.
func (p *Pipeline) Run(ctx context.Context, progress chan<- ProgressUpdate, policy stats.Policy) (*RunResult, error) {
	if p.aggregator == nil {
		return nil, fmt.Errorf("%w: aggregator not initialized", shared.ErrServiceUnavailable)
	}

	start := time.Now()

	records, err := p.Records(ctx, progress)
	if err != nil {
		return nil, err
	}

	return p.aggregate(ctx, progress, records, policy, start)
}

func (p *Pipeline) aggregate(ctx context.Context, progress chan<- ProgressUpdate, records []models.Record, policy stats.Policy, start time.Time) (*RunResult, error) {
	if policy == stats.ByGenre {
		sendProgress(progress, resolveAlbumsUpdate(len(stats.DistinctAlbums(records, stats.GenreAlbumLimit))))
	}
	sendProgress(progress, aggregateUpdate(policy))

	fm, err := p.aggregator.Aggregate(ctx, records, policy)
	if err != nil {
		return nil, err
	}

	sendProgress(progress, doneUpdate(policy, fm))

	elapsed := time.Since(start)
	p.logger.Info("aggregation complete", "policy", policy, "records", len(records), "buckets", fm.Len(), "elapsed", elapsed)

	return &RunResult{
		Policy:      policy,
		Records:     len(records),
		Frequencies: fm,
		Elapsed:     elapsed,
	}, nil
}

// Snapshot converts the result into an unsaved [models.Snapshot].
func (r *RunResult) Snapshot() *models.Snapshot {
	return models.NewSnapshot(0, string(r.Policy), r.Records, r.Frequencies.SnapshotEntries())
}
