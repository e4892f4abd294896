// Spotify Web API response types
//
// Based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/libstats/internal/models"
)

// DefaultAPIBaseURL is the Spotify Web API root.
const DefaultAPIBaseURL = "https://api.spotify.com/v1"

// SpotifyArtist represents a (simplified) Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbumRef is the simplified album embedded in a track.
type SpotifyAlbumRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbumRef `json:"album"`
	DurationMS int             `json:"duration_ms"`
}

// SpotifySavedTrack represents a track saved in the user's library.
type SpotifySavedTrack struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// SpotifyPaginatedTracks represents one page of the saved-tracks collection.
type SpotifyPaginatedTracks struct {
	Items    []SpotifySavedTrack `json:"items"`
	Total    int                 `json:"total"`
	Limit    int                 `json:"limit"`
	Offset   int                 `json:"offset"`
	Next     *string             `json:"next"`
	Previous *string             `json:"previous"`
}

// SpotifyAlbum represents a full Spotify album; only the fields used for aggregation are decoded.
type SpotifyAlbum struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
}

// SpotifySeveralAlbums is the body of GET /albums?ids=. Unknown ids come back as null.
type SpotifySeveralAlbums struct {
	Albums []*SpotifyAlbum `json:"albums"`
}

// SavedTracksURL returns the saved-tracks collection URL under baseURL.
func SavedTracksURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/me/tracks"
}

// Record converts a saved track into a [models.Record].
func (s SpotifySavedTrack) Record() (models.Record, error) {
	addedAt, err := time.Parse(time.RFC3339, s.AddedAt)
	if err != nil {
		return models.Record{}, fmt.Errorf("track %s: bad added_at %q: %w", s.Track.ID, s.AddedAt, err)
	}

	record := models.Record{
		TrackID: s.Track.ID,
		Title:   s.Track.Name,
		AlbumID: s.Track.Album.ID,
		AddedAt: addedAt,
	}
	if len(s.Track.Artists) > 0 {
		record.Artist = s.Track.Artists[0].Name
	}
	return record, nil
}

// Records converts every item on the page.
func (p *SpotifyPaginatedTracks) Records() ([]models.Record, error) {
	records := make([]models.Record, 0, len(p.Items))
	for _, item := range p.Items {
		r, err := item.Record()
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

// Album converts to a [models.Album].
func (a *SpotifyAlbum) Album() models.Album {
	return models.Album{ID: a.ID, Name: a.Name, Genres: a.Genres}
}
