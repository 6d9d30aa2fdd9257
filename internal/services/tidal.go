// Tidal implementation of [Provider]
//
// Speaks the v2 openapi surface (JSON:API document shape, countryCode
// scoping, searchResults with a topHits fallback).
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tracklift/tracklift/internal/limiter"
	"github.com/tracklift/tracklift/internal/models"
	"github.com/tracklift/tracklift/internal/shared"
)

const (
	tidalBaseURL = "https://openapi.tidal.com/v2"

	// Tidal caps playlist item appends at 50 per request.
	tidalMaxBatch = 50
)

type tidalRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type tidalRefList struct {
	Data []tidalRef `json:"data"`
}

type tidalAttributes struct {
	Title         string `json:"title,omitempty"`
	Name          string `json:"name,omitempty"`
	ISRC          string `json:"isrc,omitempty"`
	Duration      int    `json:"duration,omitempty"` // seconds
	NumberOfItems int    `json:"numberOfItems,omitempty"`
}

type tidalRelationships struct {
	Artists tidalRefList `json:"artists"`
	Albums  tidalRefList `json:"albums"`
}

type tidalResource struct {
	ID            string             `json:"id"`
	Type          string             `json:"type"`
	Attributes    tidalAttributes    `json:"attributes"`
	Relationships tidalRelationships `json:"relationships"`
}

type tidalLinks struct {
	Next string `json:"next"`
}

type tidalListDoc struct {
	Data     []tidalResource `json:"data"`
	Included []tidalResource `json:"included"`
	Links    tidalLinks      `json:"links"`
}

type tidalDoc struct {
	Data     tidalResource   `json:"data"`
	Included []tidalResource `json:"included"`
}

type tidalErrorDoc struct {
	Errors []struct {
		Status string `json:"status"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// TidalProvider implements [Provider] for the Tidal v2 API.
type TidalProvider struct {
	httpClient  *http.Client
	limiter     *limiter.Limiter
	baseURL     string
	accessToken string
	countryCode string
}

// NewTidalProvider creates a Tidal provider bound to an authenticated
// session token, catalog region, and rate limiter.
func NewTidalProvider(accessToken, countryCode string, lim *limiter.Limiter) (*TidalProvider, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("%w: missing tidal access token", shared.ErrMissingCredentials)
	}
	if countryCode == "" {
		countryCode = "US"
	}

	return &TidalProvider{
		httpClient:  http.DefaultClient,
		limiter:     lim,
		baseURL:     tidalBaseURL,
		accessToken: accessToken,
		countryCode: countryCode,
	}, nil
}

func (t *TidalProvider) Name() string      { return "tidal" }
func (t *TidalProvider) MaxBatchSize() int { return tidalMaxBatch }

// withCountry appends the countryCode query parameter every v2 endpoint
// requires.
func (t *TidalProvider) withCountry(endpoint string) string {
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return endpoint + sep + "countryCode=" + url.QueryEscape(t.countryCode)
}

func (t *TidalProvider) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	if t.limiter != nil {
		if err := t.limiter.Acquire(ctx); err != nil {
			return err
		}
	}

	apiURL := endpoint
	if len(endpoint) == 0 || endpoint[0] == '/' {
		apiURL = t.baseURL + endpoint
	}

	var reader io.Reader = bytes.NewReader(nil)
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.accessToken)
	req.Header.Set("Accept", "application/vnd.api+json")
	req.Header.Set("Content-Type", "application/vnd.api+json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", shared.ErrProviderUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return t.classify(resp, raw)
	}

	if result != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// classify maps a non-2xx Tidal response onto the shared taxonomy. A 403
// whose JSON:API error title names the playlist limit is a quota failure,
// not an auth failure.
func (t *TidalProvider) classify(resp *http.Response, raw []byte) error {
	var doc tidalErrorDoc
	_ = json.Unmarshal(raw, &doc)

	for _, e := range doc.Errors {
		title := strings.ToLower(e.Title + " " + e.Detail)
		if strings.Contains(title, "playlist limit") || strings.Contains(title, "maximum number of playlists") {
			return fmt.Errorf("%w: %s", shared.ErrQuotaExceeded, e.Title)
		}
	}

	return classifyStatus("tidal", resp)
}

// resolveTrack maps a tracks resource plus the document's included
// resources to a TrackRef, looking artist and album names up by reference.
func (t *TidalProvider) resolveTrack(res tidalResource, included []tidalResource) models.TrackRef {
	byKey := make(map[string]tidalResource, len(included))
	for _, inc := range included {
		byKey[inc.Type+":"+inc.ID] = inc
	}

	var artists []string
	for _, ref := range res.Relationships.Artists.Data {
		if inc, ok := byKey["artists:"+ref.ID]; ok {
			artists = append(artists, inc.Attributes.Name)
		}
	}

	var album string
	for _, ref := range res.Relationships.Albums.Data {
		if inc, ok := byKey["albums:"+ref.ID]; ok {
			album = inc.Attributes.Title
			break
		}
	}

	return models.TrackRef{
		Provider: t.Name(),
		ID:       res.ID,
		Title:    res.Attributes.Title,
		Artists:  artists,
		Album:    album,
		Duration: res.Attributes.Duration,
		ISRC:     res.Attributes.ISRC,
	}
}

func (t *TidalProvider) collectTracks(doc *tidalListDoc) []models.TrackRef {
	tracks := make([]models.TrackRef, 0, len(doc.Data))
	byKey := make(map[string]tidalResource, len(doc.Included))
	for _, inc := range doc.Included {
		byKey[inc.Type+":"+inc.ID] = inc
	}

	for _, res := range doc.Data {
		// Relationship endpoints return bare refs; the track resources ride
		// along in included.
		if res.Type == "tracks" && res.Attributes.Title == "" {
			if inc, ok := byKey["tracks:"+res.ID]; ok {
				res = inc
			}
		}
		if res.Type != "tracks" {
			continue
		}
		tracks = append(tracks, t.resolveTrack(res, doc.Included))
	}
	return tracks
}

// ownerID resolves the session user's ID for owner-scoped listings.
func (t *TidalProvider) ownerID(ctx context.Context) (string, error) {
	var doc tidalDoc
	if err := t.doRequest(ctx, http.MethodGet, "/users/me", nil, &doc); err != nil {
		return "", err
	}
	if doc.Data.ID == "" {
		return "", fmt.Errorf("%w: tidal returned no user id", shared.ErrAuth)
	}
	return doc.Data.ID, nil
}

// ListPlaylists retrieves the session user's playlists.
func (t *TidalProvider) ListPlaylists(ctx context.Context) ([]models.PlaylistRef, error) {
	owner, err := t.ownerID(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := t.withCountry("/playlists?filter[owners.id]=" + url.QueryEscape(owner))
	var playlists []models.PlaylistRef

	for endpoint != "" {
		var doc tidalListDoc
		if err := t.doRequest(ctx, http.MethodGet, endpoint, nil, &doc); err != nil {
			return nil, err
		}

		for _, res := range doc.Data {
			playlists = append(playlists, models.PlaylistRef{
				Provider: t.Name(),
				ID:       res.ID,
				Name:     res.Attributes.Name,
			})
		}

		endpoint = doc.Links.Next
	}

	return playlists, nil
}

// Playlist retrieves playlist metadata by ID.
func (t *TidalProvider) Playlist(ctx context.Context, playlistID string) (*models.PlaylistRef, error) {
	var doc tidalDoc
	endpoint := t.withCountry("/playlists/" + url.PathEscape(playlistID))
	if err := t.doRequest(ctx, http.MethodGet, endpoint, nil, &doc); err != nil {
		return nil, err
	}

	return &models.PlaylistRef{Provider: t.Name(), ID: doc.Data.ID, Name: doc.Data.Attributes.Name}, nil
}

// tidalPager walks cursor pagination via the links.next relation.
type tidalPager struct {
	provider *TidalProvider
	endpoint string
	done     bool
}

func (p *tidalPager) Next(ctx context.Context) ([]models.TrackRef, error) {
	if p.done {
		return nil, nil
	}

	var doc tidalListDoc
	if err := p.provider.doRequest(ctx, http.MethodGet, p.endpoint, nil, &doc); err != nil {
		return nil, err
	}

	if doc.Links.Next == "" {
		p.done = true
	} else {
		p.endpoint = doc.Links.Next
	}

	page := p.provider.collectTracks(&doc)
	if page == nil {
		page = []models.TrackRef{}
	}
	return page, nil
}

// PlaylistTracks returns a pager over a playlist's items in playlist order.
func (t *TidalProvider) PlaylistTracks(playlistID string) TrackPager {
	if playlistID == models.LikedSongsID {
		return t.LikedTracks()
	}
	endpoint := t.withCountry(fmt.Sprintf("/playlists/%s/relationships/items?include=items,artists,albums", url.PathEscape(playlistID)))
	return &tidalPager{provider: t, endpoint: endpoint}
}

// LikedTracks returns a pager over the user's collection tracks.
func (t *TidalProvider) LikedTracks() TrackPager {
	endpoint := t.withCountry("/userCollections/me/relationships/tracks?include=tracks,artists,albums")
	return &tidalPager{provider: t, endpoint: endpoint}
}

// SearchTracks queries the catalog, falling back to topHits when the track
// search relation is unavailable.
func (t *TidalProvider) SearchTracks(ctx context.Context, q SearchQuery) ([]models.TrackRef, error) {
	query := strings.TrimSpace(shared.SanitizeQuery(q.Artist) + " " + shared.SanitizeQuery(q.Title))
	if q.ISRC != "" && query == "" {
		query = q.ISRC
	}

	endpoint := t.withCountry(fmt.Sprintf("/searchResults/%s/relationships/tracks?include=tracks,artists,albums", url.PathEscape(query)))

	var doc tidalListDoc
	err := t.doRequest(ctx, http.MethodGet, endpoint, nil, &doc)
	if err != nil && !shared.Retryable(err) {
		fallback := t.withCountry(fmt.Sprintf("/searchResults/%s/relationships/topHits?include=tracks,artists,albums", url.PathEscape(query)))
		if ferr := t.doRequest(ctx, http.MethodGet, fallback, nil, &doc); ferr != nil {
			return nil, err
		}
		err = nil
	}
	if err != nil {
		return nil, err
	}

	return t.collectTracks(&doc), nil
}

// CreatePlaylist creates a playlist owned by the session user.
func (t *TidalProvider) CreatePlaylist(ctx context.Context, name, description string) (*models.PlaylistRef, error) {
	payload := map[string]any{
		"data": map[string]any{
			"type": "playlists",
			"attributes": map[string]any{
				"name":        name,
				"description": description,
			},
		},
	}

	var doc tidalDoc
	if err := t.doRequest(ctx, http.MethodPost, t.withCountry("/playlists"), payload, &doc); err != nil {
		return nil, err
	}
	if doc.Data.ID == "" {
		return nil, fmt.Errorf("%w: tidal returned no playlist id", shared.ErrProviderUnavailable)
	}

	return &models.PlaylistRef{Provider: t.Name(), ID: doc.Data.ID, Name: name}, nil
}

// AddTracks appends one batch of track IDs in order, atomically for the
// batch.
func (t *TidalProvider) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}
	if len(trackIDs) > tidalMaxBatch {
		return fmt.Errorf("%w: batch of %d exceeds tidal cap %d", shared.ErrInvalidInput, len(trackIDs), tidalMaxBatch)
	}

	refs := make([]tidalRef, len(trackIDs))
	for i, id := range trackIDs {
		refs[i] = tidalRef{ID: id, Type: "tracks"}
	}

	endpoint := t.withCountry(fmt.Sprintf("/playlists/%s/relationships/items", url.PathEscape(playlistID)))
	return t.doRequest(ctx, http.MethodPost, endpoint, map[string]any{"data": refs}, nil)
}
