package services

import (
	"context"

	"github.com/tracklift/tracklift/internal/models"
)

// SearchQuery carries the source-track metadata a catalog search operates on.
type SearchQuery struct {
	Title  string
	Artist string
	ISRC   string
}

// TrackPager lazily iterates a playlist's tracks one provider page at a
// time. Next returns a nil slice once the sequence is exhausted. Pagers are
// single-pass; calling PlaylistTracks or LikedTracks again yields a fresh
// pager starting from the beginning.
type TrackPager interface {
	Next(ctx context.Context) ([]models.TrackRef, error)
}

// Provider is the uniform capability surface for a streaming catalog.
//
// Sources need the read side (playlists, tracks, liked songs); targets also
// need search and playlist mutation. Implementations report failures through
// the shared error taxonomy: ErrAuth for expired or invalid sessions,
// ErrProviderUnavailable for 5xx and network failures, RateLimitError for
// 429s (with the retry-after hint when the provider sent one), and
// ErrQuotaExceeded when the account hit a playlist-count ceiling.
type Provider interface {
	// Name returns the provider identifier (e.g. "spotify", "tidal").
	Name() string

	// MaxBatchSize returns the provider's ceiling for one AddTracks call.
	MaxBatchSize() int

	// ListPlaylists returns the user's playlists without tracks. A virtual
	// Liked Songs entry is included when the account has saved tracks.
	ListPlaylists(ctx context.Context) ([]models.PlaylistRef, error)

	// Playlist returns playlist metadata without tracks.
	Playlist(ctx context.Context, playlistID string) (*models.PlaylistRef, error)

	// PlaylistTracks returns a pager over the playlist's tracks in playlist
	// order.
	PlaylistTracks(playlistID string) TrackPager

	// LikedTracks returns a pager over the user's liked/saved tracks.
	LikedTracks() TrackPager

	// SearchTracks returns candidate tracks ordered by provider relevance,
	// bounded only by the provider's own response limit.
	SearchTracks(ctx context.Context, q SearchQuery) ([]models.TrackRef, error)

	// CreatePlaylist creates an empty playlist owned by the session user.
	CreatePlaylist(ctx context.Context, name, description string) (*models.PlaylistRef, error)

	// AddTracks appends one batch of tracks, in order. The call succeeds or
	// fails atomically for the batch; chunking to MaxBatchSize is the
	// caller's responsibility.
	AddTracks(ctx context.Context, playlistID string, trackIDs []string) error
}

// Tracks drains a pager into a slice, preserving order.
func Tracks(ctx context.Context, pager TrackPager) ([]models.TrackRef, error) {
	var all []models.TrackRef
	for {
		page, err := pager.Next(ctx)
		if err != nil {
			return nil, err
		}
		if page == nil {
			return all, nil
		}
		all = append(all, page...)
	}
}
