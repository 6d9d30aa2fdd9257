// Qobuz implementation of [Provider]
//
// Speaks the www.qobuz.com/api.json/0.2 surface: app-id plus long-lived
// user-token headers, form-encoded writes, offset pagination. No OAuth.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tracklift/tracklift/internal/limiter"
	"github.com/tracklift/tracklift/internal/models"
	"github.com/tracklift/tracklift/internal/shared"
)

const (
	qobuzBaseURL = "https://www.qobuz.com/api.json/0.2"

	// addTracks takes comma-separated IDs; keep batches at 50.
	qobuzMaxBatch   = 50
	qobuzPageLimit  = 50
	qobuzSearchSize = 10
	qobuzListLimit  = 500
)

type qobuzPerformer struct {
	Name string `json:"name"`
}

type qobuzAlbum struct {
	Title string `json:"title"`
}

type qobuzTrack struct {
	ID        int64          `json:"id"`
	Title     string         `json:"title"`
	Duration  int            `json:"duration"` // seconds
	ISRC      string         `json:"isrc"`
	Performer qobuzPerformer `json:"performer"`
	Album     qobuzAlbum     `json:"album"`
}

type qobuzTrackPage struct {
	Items []qobuzTrack `json:"items"`
	Total int          `json:"total"`
}

// qobuzTracksDoc covers every response that nests tracks under a "tracks"
// key: playlist/get with extra=tracks, favorites, and catalog search.
type qobuzTracksDoc struct {
	Tracks qobuzTrackPage `json:"tracks"`
}

type qobuzPlaylist struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	TracksCount int    `json:"tracks_count"`
}

type qobuzPlaylistList struct {
	Playlists struct {
		Items []qobuzPlaylist `json:"items"`
		Total int             `json:"total"`
	} `json:"playlists"`
}

// QobuzProvider implements [Provider] for the Qobuz API.
//
// Qobuz sessions are an app ID plus a long-lived user token sent as headers
// on every request; there is no refresh flow.
type QobuzProvider struct {
	httpClient *http.Client
	limiter    *limiter.Limiter
	baseURL    string
	appID      string
	userToken  string
}

// NewQobuzProvider creates a Qobuz provider bound to an application ID, a
// user auth token, and a rate limiter.
func NewQobuzProvider(appID, userToken string, lim *limiter.Limiter) (*QobuzProvider, error) {
	if appID == "" || userToken == "" {
		return nil, fmt.Errorf("%w: missing qobuz app id or user auth token", shared.ErrMissingCredentials)
	}

	return &QobuzProvider{
		httpClient: http.DefaultClient,
		limiter:    lim,
		baseURL:    qobuzBaseURL,
		appID:      appID,
		userToken:  userToken,
	}, nil
}

func (q *QobuzProvider) Name() string      { return "qobuz" }
func (q *QobuzProvider) MaxBatchSize() int { return qobuzMaxBatch }

func (q *QobuzProvider) do(ctx context.Context, req *http.Request, result any) error {
	if q.limiter != nil {
		if err := q.limiter.Acquire(ctx); err != nil {
			return err
		}
	}

	req.Header.Set("X-App-Id", q.appID)
	req.Header.Set("X-User-Auth-Token", q.userToken)

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus("qobuz", resp); err != nil {
		return err
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func (q *QobuzProvider) getJSON(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return q.do(ctx, req, result)
}

// postForm sends a form-encoded write. The Qobuz write endpoints reject
// JSON bodies.
func (q *QobuzProvider) postForm(ctx context.Context, endpoint string, form url.Values, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, q.baseURL+endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return q.do(ctx, req, result)
}

func (q *QobuzProvider) toTrackRef(t *qobuzTrack) models.TrackRef {
	var artists []string
	if t.Performer.Name != "" {
		artists = []string{t.Performer.Name}
	}

	return models.TrackRef{
		Provider: q.Name(),
		ID:       strconv.FormatInt(t.ID, 10),
		Title:    t.Title,
		Artists:  artists,
		Album:    t.Album.Title,
		Duration: t.Duration,
		ISRC:     t.ISRC,
	}
}

// ListPlaylists retrieves the user's playlists, prepending a virtual Liked
// Songs entry when the favorites library has tracks.
func (q *QobuzProvider) ListPlaylists(ctx context.Context) ([]models.PlaylistRef, error) {
	var playlists []models.PlaylistRef

	var favorites qobuzTracksDoc
	if err := q.getJSON(ctx, "/favorite/getUserFavorites?type=tracks&limit=1&offset=0", &favorites); err != nil {
		return nil, err
	}
	if favorites.Tracks.Total > 0 {
		playlists = append(playlists, models.PlaylistRef{
			Provider: q.Name(),
			ID:       models.LikedSongsID,
			Name:     "Liked Songs",
		})
	}

	offset := 0
	for {
		endpoint := fmt.Sprintf("/playlist/getUserPlaylists?limit=%d&offset=%d", qobuzListLimit, offset)
		var page qobuzPlaylistList
		if err := q.getJSON(ctx, endpoint, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Playlists.Items {
			playlists = append(playlists, models.PlaylistRef{
				Provider: q.Name(),
				ID:       strconv.FormatInt(item.ID, 10),
				Name:     item.Name,
			})
		}

		offset += len(page.Playlists.Items)
		if len(page.Playlists.Items) < qobuzListLimit {
			return playlists, nil
		}
	}
}

// Playlist retrieves playlist metadata by ID. The virtual liked ID resolves
// without a network call.
func (q *QobuzProvider) Playlist(ctx context.Context, playlistID string) (*models.PlaylistRef, error) {
	if playlistID == models.LikedSongsID {
		return &models.PlaylistRef{Provider: q.Name(), ID: models.LikedSongsID, Name: "Liked Songs"}, nil
	}

	var pl qobuzPlaylist
	endpoint := fmt.Sprintf("/playlist/get?playlist_id=%s&limit=0", url.QueryEscape(playlistID))
	if err := q.getJSON(ctx, endpoint, &pl); err != nil {
		return nil, err
	}

	return &models.PlaylistRef{Provider: q.Name(), ID: strconv.FormatInt(pl.ID, 10), Name: pl.Name}, nil
}

// qobuzPager walks offset pagination over any endpoint that returns a
// tracks page.
type qobuzPager struct {
	provider *QobuzProvider
	endpoint func(offset int) string
	offset   int
	done     bool
}

func (p *qobuzPager) Next(ctx context.Context) ([]models.TrackRef, error) {
	if p.done {
		return nil, nil
	}

	var doc qobuzTracksDoc
	if err := p.provider.getJSON(ctx, p.endpoint(p.offset), &doc); err != nil {
		return nil, err
	}

	page := make([]models.TrackRef, 0, len(doc.Tracks.Items))
	for i := range doc.Tracks.Items {
		page = append(page, p.provider.toTrackRef(&doc.Tracks.Items[i]))
	}

	p.offset += len(doc.Tracks.Items)
	if len(doc.Tracks.Items) < qobuzPageLimit {
		p.done = true
	}
	return page, nil
}

// PlaylistTracks returns a pager over a playlist's tracks. Passing the
// virtual liked ID routes to the favorites endpoint.
func (q *QobuzProvider) PlaylistTracks(playlistID string) TrackPager {
	if playlistID == models.LikedSongsID {
		return q.LikedTracks()
	}
	return &qobuzPager{
		provider: q,
		endpoint: func(offset int) string {
			return fmt.Sprintf("/playlist/get?playlist_id=%s&extra=tracks&limit=%d&offset=%d",
				url.QueryEscape(playlistID), qobuzPageLimit, offset)
		},
	}
}

// LikedTracks returns a pager over the user's favorite tracks.
func (q *QobuzProvider) LikedTracks() TrackPager {
	return &qobuzPager{
		provider: q,
		endpoint: func(offset int) string {
			return fmt.Sprintf("/favorite/getUserFavorites?type=tracks&limit=%d&offset=%d", qobuzPageLimit, offset)
		},
	}
}

// SearchTracks queries the catalog. Qobuz has no ISRC filter, so an
// ISRC-only query searches for the code as plain text.
func (q *QobuzProvider) SearchTracks(ctx context.Context, query SearchQuery) ([]models.TrackRef, error) {
	text := strings.TrimSpace(shared.SanitizeQuery(query.Artist) + " " + shared.SanitizeQuery(query.Title))
	if text == "" && query.ISRC != "" {
		text = query.ISRC
	}

	endpoint := fmt.Sprintf("/catalog/search?query=%s&limit=%d", url.QueryEscape(text), qobuzSearchSize)

	var doc qobuzTracksDoc
	if err := q.getJSON(ctx, endpoint, &doc); err != nil {
		return nil, err
	}

	tracks := make([]models.TrackRef, 0, len(doc.Tracks.Items))
	for i := range doc.Tracks.Items {
		tracks = append(tracks, q.toTrackRef(&doc.Tracks.Items[i]))
	}
	return tracks, nil
}

// CreatePlaylist creates a private playlist owned by the session user.
func (q *QobuzProvider) CreatePlaylist(ctx context.Context, name, description string) (*models.PlaylistRef, error) {
	form := url.Values{}
	form.Set("name", name)
	form.Set("is_public", "false")
	form.Set("is_collaborative", "false")
	if description != "" {
		form.Set("description", description)
	}

	var created qobuzPlaylist
	if err := q.postForm(ctx, "/playlist/create", form, &created); err != nil {
		return nil, err
	}
	if created.ID == 0 {
		return nil, fmt.Errorf("%w: qobuz returned no playlist id", shared.ErrProviderUnavailable)
	}

	return &models.PlaylistRef{Provider: q.Name(), ID: strconv.FormatInt(created.ID, 10), Name: name}, nil
}

// AddTracks appends one batch of track IDs in order, comma-joined the way
// the addTracks endpoint expects.
func (q *QobuzProvider) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}
	if len(trackIDs) > qobuzMaxBatch {
		return fmt.Errorf("%w: batch of %d exceeds qobuz cap %d", shared.ErrInvalidInput, len(trackIDs), qobuzMaxBatch)
	}

	form := url.Values{}
	form.Set("playlist_id", playlistID)
	form.Set("track_ids", strings.Join(trackIDs, ","))
	form.Set("no_duplicate", "true")

	return q.postForm(ctx, "/playlist/addTracks", form, nil)
}
