package stats

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/libstats/internal/models"
	"github.com/desertthunder/libstats/internal/shared"
)

// GenreAlbumLimit is how many distinct albums the genre policy resolves.
const GenreAlbumLimit = 20

// AlbumResolver resolves one batch of album ids. Implemented by services.AlbumLookup.
type AlbumResolver interface {
	Resolve(ctx context.Context, ids []string) ([]models.Album, error)
}

// Aggregator builds frequency maps from records.
type Aggregator struct {
	albums   AlbumResolver
	location *time.Location
	logger   *log.Logger
}

// NewAggregator creates an [Aggregator]. albums may be nil when the genre policy is not used; loc defaults to UTC.
func NewAggregator(albums AlbumResolver, loc *time.Location, logger *log.Logger) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Aggregator{
		albums:   albums,
		location: loc,
		logger:   shared.WithLogger(logger, "component", "aggregator"),
	}
}

// Aggregate counts records under policy, in record order. records is not modified.
func (a *Aggregator) Aggregate(ctx context.Context, records []models.Record, policy Policy) (*FrequencyMap, error) {
	switch policy {
	case ByDay, ByMonth, ByYear:
		fm := NewFrequencyMap()
		for _, r := range records {
			fm.Inc(policy.Key(r.AddedAt, a.location))
		}
		return fm, nil
	case ByWeekday:
		fm := NewFrequencyMap(Weekdays...)
		for _, r := range records {
			fm.Inc(policy.Key(r.AddedAt, a.location))
		}
		return fm, nil
	case ByGenre:
		return a.genres(ctx, records)
	default:
		return nil, fmt.Errorf("%w: unknown policy %q", shared.ErrInvalidArgument, policy)
	}
}

// genres resolves the first [GenreAlbumLimit] distinct albums in one call and counts each record's album genres.
// Records on any other album are left out.
func (a *Aggregator) genres(ctx context.Context, records []models.Record) (*FrequencyMap, error) {
	if a.albums == nil {
		return nil, fmt.Errorf("%w: genre policy needs an album resolver", shared.ErrInvalidArgument)
	}

	ids := DistinctAlbums(records, GenreAlbumLimit)
	fm := NewFrequencyMap()
	if len(ids) == 0 {
		return fm, nil
	}

	albums, err := a.albums.Resolve(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve albums: %w", err)
	}

	genresByAlbum := make(map[string][]string, len(ids))
	for _, id := range ids {
		genresByAlbum[id] = nil
	}
	for _, album := range albums {
		genresByAlbum[album.ID] = album.Genres
	}

	skipped := 0
	for _, r := range records {
		genres, ok := genresByAlbum[r.AlbumID]
		if !ok {
			skipped++
			continue
		}
		for _, g := range genres {
			fm.Inc(g)
		}
	}

	if skipped > 0 {
		a.logger.Debug("records outside resolved albums", "skipped", skipped, "albums", len(ids))
	}
	return fm, nil
}

// DistinctAlbums returns up to limit distinct, non-empty album ids in record order.
func DistinctAlbums(records []models.Record, limit int) []string {
	var ids []string
	seen := map[string]bool{}
	for _, r := range records {
		if len(ids) == limit {
			break
		}
		if r.AlbumID == "" || seen[r.AlbumID] {
			continue
		}
		seen[r.AlbumID] = true
		ids = append(ids, r.AlbumID)
	}
	return ids
}

// OldestFirst returns a copy of records ordered by AddedAt ascending; ties keep their relative order.
//
// The saved-tracks endpoint answers newest first.
func OldestFirst(records []models.Record) []models.Record {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b models.Record) int {
		return a.AddedAt.Compare(b.AddedAt)
	})
	return sorted
}
