package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/libstats/internal/models"
	"github.com/desertthunder/libstats/internal/shared"
)

// MaxAlbumBatch is the most ids GET /albums accepts in one call.
const MaxAlbumBatch = 20

// AlbumLookup resolves albums by id in batches of at most [MaxAlbumBatch].
type AlbumLookup struct {
	client  JSONGetter
	baseURL string
}

// NewAlbumLookup creates an [AlbumLookup] against the Web API at baseURL.
func NewAlbumLookup(client JSONGetter, baseURL string) *AlbumLookup {
	return &AlbumLookup{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// Resolve fetches the albums for one batch of ids with a single request.
//
// More than [MaxAlbumBatch] ids is a caller bug and fails with [shared.ErrChunkTooLarge]; the batch is never
// truncated. Ids Spotify doesn't know are omitted from the result.
func (l *AlbumLookup) Resolve(ctx context.Context, ids []string) ([]models.Album, error) {
	if len(ids) > MaxAlbumBatch {
		return nil, fmt.Errorf("%w: %d ids, limit is %d", shared.ErrChunkTooLarge, len(ids), MaxAlbumBatch)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	endpoint := l.baseURL + "/albums?" + url.Values{"ids": {strings.Join(ids, ",")}}.Encode()

	var resp SpotifySeveralAlbums
	if err := l.client.GetJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	albums := make([]models.Album, 0, len(resp.Albums))
	for _, a := range resp.Albums {
		if a == nil {
			continue
		}
		albums = append(albums, a.Album())
	}
	return albums, nil
}

// ResolveChunks issues one [AlbumLookup.Resolve] per chunk and concatenates the results in chunk order.
func (l *AlbumLookup) ResolveChunks(ctx context.Context, chunks [][]string) ([]models.Album, error) {
	var albums []models.Album
	for i, chunk := range chunks {
		batch, err := l.Resolve(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		albums = append(albums, batch...)
	}
	return albums, nil
}

// Chunk splits ids into consecutive slices of at most size elements.
func Chunk(ids []string, size int) [][]string {
	if size < 1 {
		size = MaxAlbumBatch
	}

	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
