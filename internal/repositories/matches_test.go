package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracklift/tracklift/internal/models"
	"github.com/tracklift/tracklift/internal/shared"
)

func newTestRepo(t *testing.T) *MatchRepository {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, shared.RunMigrations(db))
	return NewMatchRepository(db)
}

func sourceTrack() models.TrackRef {
	return models.TrackRef{Provider: "spotify", ID: "s1", Title: "Song A", Artists: []string{"Artist X"}}
}

func targetTrack() models.TrackRef {
	return models.TrackRef{
		Provider: "tidal", ID: "t1",
		Title: "Song A", Artists: []string{"Artist X", "Guest"},
		Album: "Album Z", Duration: 201, ISRC: "USXXX0000001",
	}
}

func TestMatchRepository(t *testing.T) {
	t.Run("record and lookup roundtrip", func(t *testing.T) {
		repo := newTestRepo(t)

		require.NoError(t, repo.Record(sourceTrack(), targetTrack(), 0.92))

		m, err := repo.Lookup("spotify", "s1", "tidal")
		require.NoError(t, err)
		require.NotNil(t, m)

		assert.Equal(t, "t1", m.Target.ID)
		assert.Equal(t, "tidal", m.Target.Provider)
		assert.Equal(t, []string{"Artist X", "Guest"}, m.Target.Artists)
		assert.Equal(t, "Album Z", m.Target.Album)
		assert.Equal(t, 201, m.Target.Duration)
		assert.Equal(t, "USXXX0000001", m.Target.ISRC)
		assert.InDelta(t, 0.92, m.Score, 1e-9)
	})

	t.Run("miss returns nil without error", func(t *testing.T) {
		repo := newTestRepo(t)

		m, err := repo.Lookup("spotify", "missing", "tidal")
		require.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("duplicate record is ignored", func(t *testing.T) {
		repo := newTestRepo(t)

		require.NoError(t, repo.Record(sourceTrack(), targetTrack(), 0.92))

		other := targetTrack()
		other.ID = "t2"
		require.NoError(t, repo.Record(sourceTrack(), other, 0.88))

		m, err := repo.Lookup("spotify", "s1", "tidal")
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, "t1", m.Target.ID, "first recording wins")

		n, err := repo.Count("tidal")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("same source caches independently per target provider", func(t *testing.T) {
		repo := newTestRepo(t)

		require.NoError(t, repo.Record(sourceTrack(), targetTrack(), 0.92))

		elsewhere := targetTrack()
		elsewhere.Provider = "deezer"
		elsewhere.ID = "d1"
		require.NoError(t, repo.Record(sourceTrack(), elsewhere, 0.80))

		m, err := repo.Lookup("spotify", "s1", "deezer")
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, "d1", m.Target.ID)
	})

	t.Run("purge clears one target provider", func(t *testing.T) {
		repo := newTestRepo(t)

		require.NoError(t, repo.Record(sourceTrack(), targetTrack(), 0.92))

		deleted, err := repo.Purge("tidal")
		require.NoError(t, err)
		assert.EqualValues(t, 1, deleted)

		m, err := repo.Lookup("spotify", "s1", "tidal")
		require.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("single-artist roundtrip", func(t *testing.T) {
		repo := newTestRepo(t)

		target := targetTrack()
		target.Artists = []string{"Solo"}
		require.NoError(t, repo.Record(sourceTrack(), target, 0.9))

		m, err := repo.Lookup("spotify", "s1", "tidal")
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, []string{"Solo"}, m.Target.Artists)
	})
}
