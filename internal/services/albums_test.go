package services

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"testing"

	"github.com/desertthunder/libstats/internal/shared"
	tu "github.com/desertthunder/libstats/internal/testing"
)

func albumIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = "album-" + strconv.Itoa(i)
	}
	return ids
}

func newTestLookup(t *testing.T, fake *tu.FakeSpotify) *AlbumLookup {
	t.Helper()
	return NewAlbumLookup(newTestClient(newTestStore(t, fake, fake.Token())), fake.APIBaseURL())
}

func TestAlbumLookup(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves a batch with one request", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		ids := albumIDs(20)
		for _, id := range ids {
			fake.SetGenres(id, "rock", "indie")
		}
		lookup := newTestLookup(t, fake)

		albums, err := lookup.Resolve(ctx, ids)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(albums) != 20 {
			t.Fatalf("expected 20 albums, got %d", len(albums))
		}
		if albums[3].ID != "album-3" || !slices.Equal(albums[3].Genres, []string{"rock", "indie"}) {
			t.Errorf("unexpected album %+v", albums[3])
		}

		requests := fake.AlbumRequests()
		if len(requests) != 1 {
			t.Fatalf("expected 1 request, got %d", len(requests))
		}
		if !slices.Equal(requests[0], ids) {
			t.Errorf("expected ids %v, got %v", ids, requests[0])
		}
	})

	t.Run("rejects more than 20 ids", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		lookup := newTestLookup(t, fake)

		_, err := lookup.Resolve(ctx, albumIDs(21))
		if !errors.Is(err, shared.ErrChunkTooLarge) {
			t.Fatalf("expected ErrChunkTooLarge, got %v", err)
		}
		if len(fake.AlbumRequests()) != 0 {
			t.Error("expected no request")
		}
	})

	t.Run("empty input issues no request", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		lookup := newTestLookup(t, fake)

		albums, err := lookup.Resolve(ctx, nil)
		if err != nil || len(albums) != 0 {
			t.Fatalf("expected empty result, got %v, %v", albums, err)
		}
		if len(fake.AlbumRequests()) != 0 {
			t.Error("expected no request")
		}
	})

	t.Run("skips unknown albums", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		fake.SetGenres("known", "jazz")
		lookup := newTestLookup(t, fake)

		albums, err := lookup.Resolve(ctx, []string{"missing", "known"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(albums) != 1 || albums[0].ID != "known" {
			t.Errorf("expected only the known album, got %+v", albums)
		}
	})

	t.Run("ResolveChunks keeps chunk order", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		ids := albumIDs(45)
		for _, id := range ids {
			fake.SetGenres(id, "pop")
		}
		lookup := newTestLookup(t, fake)

		albums, err := lookup.ResolveChunks(ctx, Chunk(ids, MaxAlbumBatch))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(albums) != 45 {
			t.Fatalf("expected 45 albums, got %d", len(albums))
		}
		for i, a := range albums {
			if a.ID != ids[i] {
				t.Fatalf("album %d: expected %s, got %s", i, ids[i], a.ID)
			}
		}
		if n := len(fake.AlbumRequests()); n != 3 {
			t.Errorf("expected 3 requests, got %d", n)
		}
	})

	t.Run("ResolveChunks fails on an oversized chunk", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		lookup := newTestLookup(t, fake)

		_, err := lookup.ResolveChunks(ctx, [][]string{albumIDs(2), albumIDs(25)})
		if !errors.Is(err, shared.ErrChunkTooLarge) {
			t.Fatalf("expected ErrChunkTooLarge, got %v", err)
		}
	})
}

func TestChunk(t *testing.T) {
	tests := []struct {
		n, size int
		want    []int
	}{
		{0, 20, nil},
		{5, 20, []int{5}},
		{20, 20, []int{20}},
		{41, 20, []int{20, 20, 1}},
		{3, 0, []int{3}},
	}

	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.n)+"/"+strconv.Itoa(tt.size), func(t *testing.T) {
			chunks := Chunk(albumIDs(tt.n), tt.size)
			var sizes []int
			for _, c := range chunks {
				sizes = append(sizes, len(c))
			}
			if !slices.Equal(sizes, tt.want) {
				t.Errorf("expected sizes %v, got %v", tt.want, sizes)
			}
		})
	}
}
