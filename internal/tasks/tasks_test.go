package tasks

import (
	"context"
	"errors"
	"io"
	"slices"
	"testing"
	"time"

	"github.com/desertthunder/libstats/internal/auth"
	"github.com/desertthunder/libstats/internal/models"
	"github.com/desertthunder/libstats/internal/services"
	"github.com/desertthunder/libstats/internal/shared"
	"github.com/desertthunder/libstats/internal/stats"
	tu "github.com/desertthunder/libstats/internal/testing"
)

var epoch = time.Date(2023, time.October, 30, 9, 0, 0, 0, time.UTC)

// newTestPipeline wires the real client, paginator and album lookup against a fake API.
func newTestPipeline(t *testing.T, fake *tu.FakeSpotify, pageSize int) *Pipeline {
	t.Helper()
	logger := shared.NewLogger(io.Discard)

	store := auth.NewTokenStore(auth.NewEndpointRenewer(fake.URL(), nil), logger)
	if err := store.Initialize(fake.Token(), "refresh-0"); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	client := services.NewAuthorizingClient(store, services.ClientOpts{Logger: logger})
	paginator := services.NewPaginator(client, 3, logger)
	aggregator := stats.NewAggregator(services.NewAlbumLookup(client, fake.APIBaseURL()), time.UTC, logger)

	return NewPipeline(paginator, aggregator, fake.SavedTracksURL(), pageSize, logger)
}

func drain(progress chan ProgressUpdate) []ProgressUpdate {
	var updates []ProgressUpdate
	for {
		select {
		case u := <-progress:
			updates = append(updates, u)
		default:
			return updates
		}
	}
}

type failingCollector struct{ err error }

func (f failingCollector) FetchAll(ctx context.Context, resourceURL string, pageSize int) ([]models.Record, error) {
	return nil, f.err
}

func (f failingCollector) Cached(string) bool { return false }

func TestPipeline(t *testing.T) {
	ctx := context.Background()

	t.Run("Run counts by month oldest first", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		// one track a day from Oct 30: 2 in Oct, 30 in Nov, 8 in Dec
		fake.AddTracks(40, epoch, 24*time.Hour, nil)
		p := newTestPipeline(t, fake, 15)

		progress := make(chan ProgressUpdate, 32)
		result, err := p.Run(ctx, progress, stats.ByMonth)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if result.Records != 40 || result.Policy != stats.ByMonth {
			t.Errorf("unexpected result %+v", result)
		}
		if !slices.Equal(result.Frequencies.Keys(), []string{"Oct-23", "Nov-23", "Dec-23"}) {
			t.Errorf("unexpected keys %v", result.Frequencies.Keys())
		}
		if !slices.Equal(result.Frequencies.Values(), []int{2, 30, 8}) {
			t.Errorf("unexpected values %v", result.Frequencies.Values())
		}

		updates := drain(progress)
		if len(updates) == 0 || updates[len(updates)-1].Phase != Done {
			t.Fatalf("expected final update to be done, got %v", updates)
		}
		if _, ok := updates[len(updates)-1].Data.(*stats.FrequencyMap); !ok {
			t.Error("expected done update to carry the frequency map")
		}
	})

	t.Run("re-aggregation reuses the fetched collection", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		fake.AddTracks(60, epoch, time.Hour, nil)
		p := newTestPipeline(t, fake, 50)

		if _, err := p.Run(ctx, nil, stats.ByDay); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		hits := fake.TotalPageHits()

		progress := make(chan ProgressUpdate, 16)
		result, err := p.Run(ctx, progress, stats.ByWeekday)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if fake.TotalPageHits() != hits {
			t.Errorf("expected no new page requests, got %d more", fake.TotalPageHits()-hits)
		}
		if result.Frequencies.Len() != 7 || result.Frequencies.Total() != 60 {
			t.Errorf("unexpected weekday map %v", result.Frequencies.Entries())
		}
		if updates := drain(progress); updates[0].Message != "Using cached saved tracks..." {
			t.Errorf("expected cached message, got %q", updates[0].Message)
		}
	})

	t.Run("genre resolves the first 20 albums", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		fake.AddTracks(30, epoch, time.Hour, func(i int) string { return "album-" + string(rune('a'+i)) })
		for i := range 30 {
			fake.SetGenres("album-"+string(rune('a'+i)), "shoegaze")
		}
		p := newTestPipeline(t, fake, 50)

		result, err := p.Run(ctx, nil, stats.ByGenre)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if n, _ := result.Frequencies.Get("shoegaze"); n != 20 {
			t.Errorf("expected 20, got %d", n)
		}

		requests := fake.AlbumRequests()
		if len(requests) != 1 || len(requests[0]) != 20 {
			t.Fatalf("expected one request with 20 ids, got %v", requests)
		}
		if requests[0][0] != "album-a" {
			t.Errorf("expected the oldest album first, got %s", requests[0][0])
		}
	})

	t.Run("propagates pagination failures", func(t *testing.T) {
		p := NewPipeline(failingCollector{err: shared.ErrPagination}, stats.NewAggregator(nil, nil, nil), "u", 50, shared.NewLogger(io.Discard))

		if _, err := p.Run(ctx, nil, stats.ByYear); !errors.Is(err, shared.ErrPagination) {
			t.Fatalf("expected ErrPagination, got %v", err)
		}
	})

	t.Run("requires collaborators", func(t *testing.T) {
		p := NewPipeline(nil, nil, "u", 50, shared.NewLogger(io.Discard))
		if _, err := p.Run(ctx, nil, stats.ByYear); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Fatalf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("progress never blocks", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		fake.AddTracks(5, epoch, time.Hour, nil)
		p := newTestPipeline(t, fake, 50)

		unbuffered := make(chan ProgressUpdate)
		done := make(chan error, 1)
		go func() {
			_, err := p.Run(ctx, unbuffered, stats.ByYear)
			done <- err
		}()

		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("pipeline blocked on progress channel")
		}
	})
}

func TestPhaseString(t *testing.T) {
	for phase, want := range map[Phase]string{
		FetchTracks:   "fetch_tracks",
		SortRecords:   "sort_records",
		ResolveAlbums: "resolve_albums",
		Aggregate:     "aggregate",
		ExportPolicy:  "export_policy",
		Done:          "done",
		Phase(99):     "",
	} {
		if got := phase.String(); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}
