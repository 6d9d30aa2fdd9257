package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tracklift/tracklift/internal/shared"
)

func newTestTidal(t *testing.T, handler http.Handler) (*TidalProvider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewTidalProvider("test-token", "US", nil)
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	p.baseURL = srv.URL
	return p, srv
}

func TestNewTidalProvider(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		_, err := NewTidalProvider("", "US", nil)
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Fatalf("expected missing credentials error, got %v", err)
		}
	})

	t.Run("country code defaults", func(t *testing.T) {
		p, err := NewTidalProvider("tok", "", nil)
		if err != nil {
			t.Fatal(err)
		}
		if p.countryCode != "US" {
			t.Errorf("expected US default, got %s", p.countryCode)
		}
	})

	t.Run("name and batch cap", func(t *testing.T) {
		p, _ := NewTidalProvider("tok", "DE", nil)
		if p.Name() != "tidal" {
			t.Errorf("expected name tidal, got %s", p.Name())
		}
		if p.MaxBatchSize() != 50 {
			t.Errorf("expected batch cap 50, got %d", p.MaxBatchSize())
		}
	})
}

func TestTidalErrorClassification(t *testing.T) {
	t.Run("playlist limit 403 is quota not auth", func(t *testing.T) {
		p, _ := newTestTidal(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"errors":[{"status":"403","title":"Playlist limit reached","detail":"You have reached the maximum number of playlists"}]}`)
		}))

		_, err := p.CreatePlaylist(context.Background(), "Overflow", "")
		if !errors.Is(err, shared.ErrQuotaExceeded) {
			t.Fatalf("expected quota error, got %v", err)
		}
		if errors.Is(err, shared.ErrAuth) {
			t.Error("quota failure must not report as auth failure")
		}
	})

	t.Run("plain 403 is auth", func(t *testing.T) {
		p, _ := newTestTidal(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"errors":[{"status":"403","title":"Forbidden"}]}`)
		}))

		_, err := p.Playlist(context.Background(), "pl")
		if !errors.Is(err, shared.ErrAuth) {
			t.Fatalf("expected auth error, got %v", err)
		}
	})

	t.Run("429 carries retry-after", func(t *testing.T) {
		p, _ := newTestTidal(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
		}))

		_, err := p.Playlist(context.Background(), "pl")

		var rl *shared.RateLimitError
		if !errors.As(err, &rl) {
			t.Fatalf("expected RateLimitError, got %v", err)
		}
		if rl.RetryAfter.Seconds() != 3 {
			t.Errorf("expected 3s retry-after, got %s", rl.RetryAfter)
		}
	})

	t.Run("5xx is unavailable", func(t *testing.T) {
		p, _ := newTestTidal(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))

		_, err := p.ListPlaylists(context.Background())
		if !errors.Is(err, shared.ErrProviderUnavailable) {
			t.Fatalf("expected unavailable error, got %v", err)
		}
	})
}

func TestTidalPlaylistTracks(t *testing.T) {
	var server *httptest.Server

	mux := http.NewServeMux()
	mux.HandleFunc("/playlists/pl1/relationships/items", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("countryCode") != "US" {
			t.Errorf("missing countryCode param: %s", r.URL.RawQuery)
		}
		fmt.Fprintf(w, `{
			"data": [{"id": "t1", "type": "tracks"}],
			"included": [
				{"id": "t1", "type": "tracks",
				 "attributes": {"title": "First Song", "isrc": "GBXXX0000001", "duration": 215},
				 "relationships": {"artists": {"data": [{"id": "a1", "type": "artists"}]},
				                   "albums": {"data": [{"id": "al1", "type": "albums"}]}}},
				{"id": "a1", "type": "artists", "attributes": {"name": "Artist A"}},
				{"id": "al1", "type": "albums", "attributes": {"title": "Album One"}}
			],
			"links": {"next": "%s/page2"}
		}`, server.URL)
	})
	mux.HandleFunc("/page2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"data": [{"id": "t2", "type": "tracks", "attributes": {"title": "Second Song", "duration": 100}}],
			"links": {}
		}`)
	})

	p, srv := newTestTidal(t, mux)
	server = srv

	tracks, err := Tracks(context.Background(), p.PlaylistTracks("pl1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}
	if tracks[0].ID != "t1" || tracks[1].ID != "t2" {
		t.Errorf("order not preserved: %v", tracks)
	}
	if tracks[0].Title != "First Song" {
		t.Errorf("bare ref should resolve via included, got %+v", tracks[0])
	}
	if len(tracks[0].Artists) != 1 || tracks[0].Artists[0] != "Artist A" {
		t.Errorf("artist name not resolved from included: %v", tracks[0].Artists)
	}
	if tracks[0].Album != "Album One" {
		t.Errorf("album name not resolved from included: %q", tracks[0].Album)
	}
	if tracks[0].Duration != 215 {
		t.Errorf("expected duration in seconds, got %d", tracks[0].Duration)
	}
}

func TestTidalSearchTracks(t *testing.T) {
	t.Run("sanitized artist-title query", func(t *testing.T) {
		var gotPath string
		p, _ := newTestTidal(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			fmt.Fprint(w, `{"data": [{"id": "t9", "type": "tracks", "attributes": {"title": "Found"}}], "links": {}}`)
		}))

		results, err := p.SearchTracks(context.Background(), SearchQuery{Title: "Song A (Remastered 2011)", Artist: "Artist X"})
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != 1 || results[0].ID != "t9" {
			t.Fatalf("unexpected results: %v", results)
		}
		if gotPath != "/searchResults/Artist X Song A/relationships/tracks" {
			t.Errorf("unexpected search path: %q", gotPath)
		}
	})

	t.Run("topHits fallback on non-retryable failure", func(t *testing.T) {
		var paths []string
		p, _ := newTestTidal(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			paths = append(paths, r.URL.Path)
			if len(paths) == 1 {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			fmt.Fprint(w, `{"data": [{"id": "hit1", "type": "tracks", "attributes": {"title": "Top Hit"}}], "links": {}}`)
		}))

		results, err := p.SearchTracks(context.Background(), SearchQuery{Title: "Obscure", Artist: "Nobody"})
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != 1 || results[0].ID != "hit1" {
			t.Fatalf("expected fallback hit, got %v", results)
		}
		if len(paths) != 2 || paths[1] != "/searchResults/Nobody Obscure/relationships/topHits" {
			t.Errorf("expected topHits fallback request, got %v", paths)
		}
	})

	t.Run("no fallback on rate limit", func(t *testing.T) {
		var calls int
		p, _ := newTestTidal(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusTooManyRequests)
		}))

		_, err := p.SearchTracks(context.Background(), SearchQuery{Title: "x"})
		if !errors.Is(err, shared.ErrRateLimited) {
			t.Fatalf("expected rate limit error, got %v", err)
		}
		if calls != 1 {
			t.Errorf("retryable failures must not trigger the fallback, got %d calls", calls)
		}
	})
}

func TestTidalListPlaylists(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/me", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"id": "u1", "type": "users"}}`)
	})
	mux.HandleFunc("/playlists", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("filter[owners.id]") != "u1" {
			t.Errorf("expected owner filter, got %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, `{
			"data": [{"id": "pl1", "type": "playlists", "attributes": {"name": "Chill"}}],
			"links": {}
		}`)
	})

	p, _ := newTestTidal(t, mux)

	playlists, err := p.ListPlaylists(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(playlists) != 1 || playlists[0].Name != "Chill" {
		t.Fatalf("unexpected playlists: %v", playlists)
	}
	if playlists[0].Provider != "tidal" {
		t.Errorf("expected tidal provider tag, got %s", playlists[0].Provider)
	}
}

func TestTidalCreateAndAdd(t *testing.T) {
	var addedIDs []string
	mux := http.NewServeMux()
	mux.HandleFunc("/playlists", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"data": {"id": "newpl", "type": "playlists"}}`)
	})
	mux.HandleFunc("/playlists/newpl/relationships/items", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Data []tidalRef `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		for _, ref := range req.Data {
			if ref.Type != "tracks" {
				t.Errorf("expected tracks ref type, got %s", ref.Type)
			}
			addedIDs = append(addedIDs, ref.ID)
		}
		w.WriteHeader(http.StatusCreated)
	})

	p, _ := newTestTidal(t, mux)

	pl, err := p.CreatePlaylist(context.Background(), "New Mix", "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if pl.ID != "newpl" || pl.Name != "New Mix" {
		t.Fatalf("unexpected playlist: %+v", pl)
	}

	if err := p.AddTracks(context.Background(), "newpl", []string{"t1", "t2", "t3"}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if len(addedIDs) != 3 || addedIDs[0] != "t1" || addedIDs[2] != "t3" {
		t.Errorf("batch order not preserved: %v", addedIDs)
	}

	t.Run("oversized batch rejected", func(t *testing.T) {
		big := make([]string, tidalMaxBatch+1)
		for i := range big {
			big[i] = fmt.Sprintf("t%d", i)
		}
		if err := p.AddTracks(context.Background(), "newpl", big); !errors.Is(err, shared.ErrInvalidInput) {
			t.Fatalf("expected invalid input error, got %v", err)
		}
	})
}
