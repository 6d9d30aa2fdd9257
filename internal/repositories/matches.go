// Package repositories provides the persistence layer for resolved matches.
//
// A match links a source catalog track to its resolved counterpart in a
// target catalog. Caching them makes repeat transfers cheap: the engine
// consults the cache before searching and records every success after.
package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tracklift/tracklift/internal/models"
	"github.com/tracklift/tracklift/internal/shared"
)

// CachedMatch is a previously resolved source → target pairing.
type CachedMatch struct {
	Target models.TrackRef
	Score  float64
}

// MatchRepository stores resolved matches in sqlite, keyed by source
// provider, source track ID, and target provider.
type MatchRepository struct {
	db *sql.DB
}

// NewMatchRepository creates a MatchRepository with the given database connection
func NewMatchRepository(db *sql.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// Record persists one resolved match. Duplicate recordings for the same
// (source provider, source ID, target provider) key are silently ignored.
func (r *MatchRepository) Record(source, target models.TrackRef, score float64) error {
	query := `
		INSERT INTO matches (id, source_provider, source_id, target_provider, target_id, title, artist, album, duration, isrc, score, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		shared.GenerateID(),
		source.Provider,
		source.ID,
		target.Provider,
		target.ID,
		target.Title,
		strings.Join(target.Artists, ", "),
		target.Album,
		target.Duration,
		target.ISRC,
		score,
		time.Now().UTC(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil
		}
		return fmt.Errorf("failed to record match: %w", err)
	}

	return nil
}

// Lookup retrieves a cached match for a source track against a target
// provider. A miss returns (nil, nil).
func (r *MatchRepository) Lookup(sourceProvider, sourceID, targetProvider string) (*CachedMatch, error) {
	query := `
		SELECT target_id, title, artist, album, duration, isrc, score
		FROM matches
		WHERE source_provider = ? AND source_id = ? AND target_provider = ?
	`

	var (
		m      CachedMatch
		artist string
	)
	row := r.db.QueryRow(query, sourceProvider, sourceID, targetProvider)
	err := row.Scan(&m.Target.ID, &m.Target.Title, &artist, &m.Target.Album, &m.Target.Duration, &m.Target.ISRC, &m.Score)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up match: %w", err)
	}

	m.Target.Provider = targetProvider
	if artist != "" {
		m.Target.Artists = strings.Split(artist, ", ")
	}
	return &m, nil
}

// Count reports how many matches are cached for a target provider.
func (r *MatchRepository) Count(targetProvider string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM matches WHERE target_provider = ?`, targetProvider).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return n, nil
}

// Purge removes every cached match for a target provider and returns how
// many rows were deleted.
func (r *MatchRepository) Purge(targetProvider string) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM matches WHERE target_provider = ?`, targetProvider)
	if err != nil {
		return 0, fmt.Errorf("failed to purge matches: %w", err)
	}
	return res.RowsAffected()
}
