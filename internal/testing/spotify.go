package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// ExpiredTokenBody is the body Spotify answers with once an access token has expired.
const ExpiredTokenBody = `{"error":{"status":401,"message":"The access token expired"}}`

// FakeTrack is one saved track served by [FakeSpotify].
type FakeTrack struct {
	ID      string
	Name    string
	Artist  string
	AlbumID string
	AddedAt time.Time
}

// FakeSpotify is an httptest server emulating the slice of the Web API libstats talks to:
//
//	GET  /v1/me/tracks?limit=&offset=
//	GET  /v1/albums?ids=
//	GET  /refresh_token?refresh_token=   (front door)
//	POST /api/token                      (accounts service)
type FakeSpotify struct {
	Server *httptest.Server

	mu        sync.Mutex
	tracks    []FakeTrack
	genres    map[string][]string
	token     string
	issued    int
	pageHits  map[int]int
	albumHits [][]string
	refreshes int

	// Intercept, when set, may answer a request itself by returning true.
	Intercept func(w http.ResponseWriter, r *http.Request) bool
}

// NewFakeSpotify starts a fake API accepting "token-0" as the valid access token.
func NewFakeSpotify(t *testing.T) *FakeSpotify {
	t.Helper()

	f := &FakeSpotify{
		genres:   map[string][]string{},
		token:    "token-0",
		pageHits: map[int]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/me/tracks", f.authorized(f.serveTracks))
	mux.HandleFunc("/v1/albums", f.authorized(f.serveAlbums))
	mux.HandleFunc("/refresh_token", f.serveRefresh)
	mux.HandleFunc("/api/token", f.serveToken)

	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f.Intercept != nil && f.Intercept(w, r) {
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Server.Close)

	return f
}

// URL returns the server origin.
func (f *FakeSpotify) URL() string { return f.Server.URL }

// APIBaseURL returns the Web API base, i.e. URL()+"/v1".
func (f *FakeSpotify) APIBaseURL() string { return f.Server.URL + "/v1" }

// SavedTracksURL returns the saved-tracks collection URL.
func (f *FakeSpotify) SavedTracksURL() string { return f.APIBaseURL() + "/me/tracks" }

// Token returns the access token currently accepted.
func (f *FakeSpotify) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

// Expire invalidates the current access token; the next refresh issues a new one.
func (f *FakeSpotify) Expire() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = "expired"
}

// AddTracks appends n tracks, newest first like the real endpoint. Track i was added at start+i*step.
func (f *FakeSpotify) AddTracks(n int, start time.Time, step time.Duration, albumFor func(i int) string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range n {
		track := FakeTrack{
			ID:      "track-" + strconv.Itoa(i),
			Name:    "Song " + strconv.Itoa(i),
			Artist:  "Artist " + strconv.Itoa(i%7),
			AddedAt: start.Add(time.Duration(i) * step),
		}
		if albumFor != nil {
			track.AlbumID = albumFor(i)
		}
		f.tracks = append([]FakeTrack{track}, f.tracks...)
	}
}

// SetGenres registers the genres returned for an album id.
func (f *FakeSpotify) SetGenres(albumID string, genres ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.genres[albumID] = genres
}

// PageHits returns how many times the page at offset was served.
func (f *FakeSpotify) PageHits(offset int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pageHits[offset]
}

// TotalPageHits returns the number of saved-track page requests served.
func (f *FakeSpotify) TotalPageHits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.pageHits {
		total += n
	}
	return total
}

// AlbumRequests returns the id batches requested from /v1/albums, in arrival order.
func (f *FakeSpotify) AlbumRequests() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.albumHits...)
}

// Refreshes returns how many refresh exchanges were served.
func (f *FakeSpotify) Refreshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshes
}

func (f *FakeSpotify) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth != "Bearer "+f.Token() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, ExpiredTokenBody)
			return
		}
		next(w, r)
	}
}

func (f *FakeSpotify) serveTracks(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 20
	}

	f.mu.Lock()
	f.pageHits[offset]++
	total := len(f.tracks)
	end := min(offset+limit, total)
	var window []FakeTrack
	if offset < total {
		window = f.tracks[offset:end]
	}
	f.mu.Unlock()

	items := make([]map[string]any, 0, len(window))
	for _, t := range window {
		items = append(items, map[string]any{
			"added_at": t.AddedAt.UTC().Format(time.RFC3339),
			"track": map[string]any{
				"id":      t.ID,
				"name":    t.Name,
				"artists": []map[string]any{{"name": t.Artist}},
				"album":   map[string]any{"id": t.AlbumID, "name": "Album " + t.AlbumID},
			},
		})
	}

	writeJSON(w, map[string]any{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (f *FakeSpotify) serveAlbums(w http.ResponseWriter, r *http.Request) {
	ids := strings.Split(r.URL.Query().Get("ids"), ",")

	f.mu.Lock()
	f.albumHits = append(f.albumHits, ids)
	albums := make([]any, 0, len(ids))
	for _, id := range ids {
		genres, ok := f.genres[id]
		if !ok {
			albums = append(albums, nil)
			continue
		}
		albums = append(albums, map[string]any{"id": id, "name": "Album " + id, "genres": genres})
	}
	f.mu.Unlock()

	writeJSON(w, map[string]any{"albums": albums})
}

func (f *FakeSpotify) rotate() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	f.issued++
	f.token = "token-" + strconv.Itoa(f.issued)
	return f.token
}

func (f *FakeSpotify) serveRefresh(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh_token") == "" {
		http.Error(w, "missing refresh_token", http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"access_token": f.rotate()})
}

func (f *FakeSpotify) serveToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch r.Form.Get("grant_type") {
	case "authorization_code":
		if r.Form.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_grant"}`)
			return
		}
		writeJSON(w, map[string]any{
			"access_token":  f.Token(),
			"refresh_token": "refresh-0",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	case "refresh_token":
		writeJSON(w, map[string]any{
			"access_token": f.rotate(),
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	default:
		http.Error(w, "unsupported grant", http.StatusBadRequest)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
