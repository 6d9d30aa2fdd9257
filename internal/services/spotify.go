// Spotify implementation of [Provider]
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/tracklift/tracklift/internal/limiter"
	"github.com/tracklift/tracklift/internal/models"
	"github.com/tracklift/tracklift/internal/shared"
)

const (
	spotifyBaseURL = "https://api.spotify.com/v1"

	// Spotify caps playlist-track appends at 100 URIs per request and page
	// sizes at 50 items.
	spotifyMaxBatch   = 100
	spotifyPageLimit  = 50
	spotifySearchSize = 10
)

type spotifyExternalIDs struct {
	ISRC string `json:"isrc"`
}

type spotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type spotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type spotifyTrack struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Artists     []spotifyArtist    `json:"artists"`
	Album       spotifyAlbum       `json:"album"`
	DurationMS  int                `json:"duration_ms"`
	ExternalIDs spotifyExternalIDs `json:"external_ids"`
}

type spotifyPlaylistTrack struct {
	Track *spotifyTrack `json:"track"`
}

type spotifySavedTrack struct {
	Track *spotifyTrack `json:"track"`
}

type spotifyTrackPage struct {
	Items []spotifyPlaylistTrack `json:"items"`
	Next  *string                `json:"next"`
}

type spotifySavedTrackPage struct {
	Items []spotifySavedTrack `json:"items"`
	Total int                 `json:"total"`
	Next  *string             `json:"next"`
}

type spotifyPlaylist struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Tracks struct {
		Total int `json:"total"`
	} `json:"tracks"`
}

type spotifyPlaylistPage struct {
	Items []spotifyPlaylist `json:"items"`
	Next  *string           `json:"next"`
}

type spotifySearchResponse struct {
	Tracks struct {
		Items []spotifyTrack `json:"items"`
	} `json:"tracks"`
}

// SpotifyProvider implements [Provider] for the Spotify Web API.
//
// The session token is supplied already authenticated; expired tokens
// surface as ErrAuth and are never refreshed here.
type SpotifyProvider struct {
	httpClient *http.Client
	limiter    *limiter.Limiter
	baseURL    string
}

// NewSpotifyProvider creates a Spotify provider bound to an authenticated
// session token and a rate limiter.
func NewSpotifyProvider(ctx context.Context, accessToken string, lim *limiter.Limiter) (*SpotifyProvider, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("%w: missing spotify access token", shared.ErrMissingCredentials)
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	return &SpotifyProvider{
		httpClient: oauth2.NewClient(ctx, src),
		limiter:    lim,
		baseURL:    spotifyBaseURL,
	}, nil
}

func (s *SpotifyProvider) Name() string      { return "spotify" }
func (s *SpotifyProvider) MaxBatchSize() int { return spotifyMaxBatch }

// doRequest performs one rate-limited request against the Spotify API.
// endpoint may be a path relative to the API base or an absolute pagination
// URL returned by a previous response.
func (s *SpotifyProvider) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	if s.limiter != nil {
		if err := s.limiter.Acquire(ctx); err != nil {
			return err
		}
	}

	apiURL := endpoint
	if len(endpoint) == 0 || endpoint[0] == '/' {
		apiURL = s.baseURL + endpoint
	}

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus("spotify", resp); err != nil {
		return err
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// classifyStatus maps an HTTP response onto the shared error taxonomy.
// Returns nil for 2xx.
func classifyStatus(provider string, resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: %s returned status %d", shared.ErrAuth, provider, code)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%s returned 429: %w", provider, &shared.RateLimitError{RetryAfter: retryAfter(resp)})
	case code == http.StatusNotFound:
		return classifyNotFound(provider, resp)
	default:
		return fmt.Errorf("%w: %s returned status %d", shared.ErrProviderUnavailable, provider, code)
	}
}

// classifyNotFound maps a 404 by the endpoint it came from: only playlist
// endpoints can name a missing playlist, and a search miss is a track
// lookup, not an outage.
func classifyNotFound(provider string, resp *http.Response) error {
	var path string
	if resp.Request != nil && resp.Request.URL != nil {
		path = resp.Request.URL.Path
	}

	switch {
	case strings.Contains(path, "/playlists/"), strings.Contains(path, "/playlist/"):
		return fmt.Errorf("%w: %s returned 404", shared.ErrPlaylistNotFound, provider)
	case strings.Contains(path, "/search"):
		return fmt.Errorf("%w: %s returned 404", shared.ErrTrackNotFound, provider)
	default:
		return fmt.Errorf("%w: %s returned status 404", shared.ErrProviderUnavailable, provider)
	}
}

func retryAfter(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func (s *SpotifyProvider) toTrackRef(t *spotifyTrack) models.TrackRef {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}

	return models.TrackRef{
		Provider: s.Name(),
		ID:       t.ID,
		Title:    t.Name,
		Artists:  artists,
		Album:    t.Album.Name,
		Duration: t.DurationMS / 1000,
		ISRC:     t.ExternalIDs.ISRC,
	}
}

// ListPlaylists retrieves the user's playlists, prepending a virtual Liked
// Songs entry when the library has saved tracks.
func (s *SpotifyProvider) ListPlaylists(ctx context.Context) ([]models.PlaylistRef, error) {
	var playlists []models.PlaylistRef

	var liked spotifySavedTrackPage
	if err := s.doRequest(ctx, http.MethodGet, "/me/tracks?limit=1", nil, &liked); err != nil {
		return nil, err
	}
	if liked.Total > 0 {
		playlists = append(playlists, models.PlaylistRef{
			Provider: s.Name(),
			ID:       models.LikedSongsID,
			Name:     "Liked Songs",
		})
	}

	endpoint := fmt.Sprintf("/me/playlists?limit=%d", spotifyPageLimit)
	for endpoint != "" {
		var page spotifyPlaylistPage
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			playlists = append(playlists, models.PlaylistRef{
				Provider: s.Name(),
				ID:       item.ID,
				Name:     item.Name,
			})
		}

		endpoint = ""
		if page.Next != nil {
			endpoint = *page.Next
		}
	}

	return playlists, nil
}

// Playlist retrieves playlist metadata by ID. The virtual liked ID resolves
// without a network call.
func (s *SpotifyProvider) Playlist(ctx context.Context, playlistID string) (*models.PlaylistRef, error) {
	if playlistID == models.LikedSongsID {
		return &models.PlaylistRef{Provider: s.Name(), ID: models.LikedSongsID, Name: "Liked Songs"}, nil
	}

	var pl spotifyPlaylist
	endpoint := fmt.Sprintf("/playlists/%s", playlistID)
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &pl); err != nil {
		return nil, err
	}

	return &models.PlaylistRef{Provider: s.Name(), ID: pl.ID, Name: pl.Name}, nil
}

// spotifyPager walks Spotify's offset pagination, following the next link
// the API returns.
type spotifyPager struct {
	provider *SpotifyProvider
	endpoint string
	liked    bool
	done     bool
}

func (p *spotifyPager) Next(ctx context.Context) ([]models.TrackRef, error) {
	if p.done {
		return nil, nil
	}

	var (
		page []models.TrackRef
		next *string
	)

	if p.liked {
		var resp spotifySavedTrackPage
		if err := p.provider.doRequest(ctx, http.MethodGet, p.endpoint, nil, &resp); err != nil {
			return nil, err
		}
		for _, item := range resp.Items {
			if item.Track == nil {
				continue // local or unavailable track
			}
			page = append(page, p.provider.toTrackRef(item.Track))
		}
		next = resp.Next
	} else {
		var resp spotifyTrackPage
		if err := p.provider.doRequest(ctx, http.MethodGet, p.endpoint, nil, &resp); err != nil {
			return nil, err
		}
		for _, item := range resp.Items {
			if item.Track == nil {
				continue
			}
			page = append(page, p.provider.toTrackRef(item.Track))
		}
		next = resp.Next
	}

	if next == nil {
		p.done = true
	} else {
		p.endpoint = *next
	}

	if page == nil {
		page = []models.TrackRef{}
	}
	return page, nil
}

// PlaylistTracks returns a pager over a playlist's tracks. Passing the
// virtual liked ID routes to the saved-tracks endpoint.
func (s *SpotifyProvider) PlaylistTracks(playlistID string) TrackPager {
	if playlistID == models.LikedSongsID {
		return s.LikedTracks()
	}
	return &spotifyPager{
		provider: s,
		endpoint: fmt.Sprintf("/playlists/%s/tracks?limit=%d", playlistID, spotifyPageLimit),
	}
}

// LikedTracks returns a pager over the user's saved tracks.
func (s *SpotifyProvider) LikedTracks() TrackPager {
	return &spotifyPager{
		provider: s,
		endpoint: fmt.Sprintf("/me/tracks?limit=%d", spotifyPageLimit),
		liked:    true,
	}
}

// SearchTracks queries the catalog. An ISRC in the query narrows the search
// to that code; otherwise title and artist filters are combined.
func (s *SpotifyProvider) SearchTracks(ctx context.Context, q SearchQuery) ([]models.TrackRef, error) {
	var query string
	if q.ISRC != "" {
		query = fmt.Sprintf("isrc:%s", q.ISRC)
	} else {
		query = fmt.Sprintf("track:%s artist:%s", shared.SanitizeQuery(q.Title), shared.SanitizeQuery(q.Artist))
	}

	endpoint := fmt.Sprintf("/search?type=track&limit=%d&q=%s", spotifySearchSize, url.QueryEscape(query))

	var resp spotifySearchResponse
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	tracks := make([]models.TrackRef, 0, len(resp.Tracks.Items))
	for i := range resp.Tracks.Items {
		tracks = append(tracks, s.toTrackRef(&resp.Tracks.Items[i]))
	}
	return tracks, nil
}

// CreatePlaylist creates a private playlist owned by the session user.
func (s *SpotifyProvider) CreatePlaylist(ctx context.Context, name, description string) (*models.PlaylistRef, error) {
	var user struct {
		ID string `json:"id"`
	}
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"name":        name,
		"description": description,
		"public":      false,
	}

	var created struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(user.ID))
	if err := s.doRequest(ctx, http.MethodPost, endpoint, payload, &created); err != nil {
		return nil, err
	}

	return &models.PlaylistRef{Provider: s.Name(), ID: created.ID, Name: created.Name}, nil
}

// AddTracks appends one batch of track IDs in order. The batch must respect
// MaxBatchSize; chunking belongs to the orchestrator.
func (s *SpotifyProvider) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}
	if len(trackIDs) > spotifyMaxBatch {
		return fmt.Errorf("%w: batch of %d exceeds spotify cap %d", shared.ErrInvalidInput, len(trackIDs), spotifyMaxBatch)
	}

	uris := make([]string, len(trackIDs))
	for i, id := range trackIDs {
		uris[i] = "spotify:track:" + id
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", playlistID)
	return s.doRequest(ctx, http.MethodPost, endpoint, map[string]any{"uris": uris}, nil)
}
