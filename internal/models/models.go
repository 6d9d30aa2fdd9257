package models

// TrackRef identifies a track within one provider's catalog.
//
// Provider-local IDs are never portable across catalogs; matching identity
// is the metadata tuple (Title, Artists, Album, Duration, ISRC).
type TrackRef struct {
	Provider string   `json:"provider"`
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Artists  []string `json:"artists"` // ordered, primary artist first
	Album    string   `json:"album,omitempty"`
	Duration int      `json:"duration,omitempty"` // seconds, 0 when unknown
	ISRC     string   `json:"isrc,omitempty"`
}

// PrimaryArtist returns the first credited artist, or "" for an empty list.
func (t TrackRef) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// LikedSongsID is the virtual playlist ID for a user's liked/saved tracks.
const LikedSongsID = "liked"

// PlaylistRef identifies a playlist and carries its ordered tracks.
type PlaylistRef struct {
	Provider string     `json:"provider"`
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Tracks   []TrackRef `json:"tracks,omitempty"` // order is significant
}

// IsLiked reports whether the ref points at the virtual Liked Songs playlist.
func (p PlaylistRef) IsLiked() bool {
	return p.ID == LikedSongsID
}

// ScoreBreakdown records per-field contributions to a match score.
type ScoreBreakdown struct {
	Title    float64 `json:"title"`
	Artists  float64 `json:"artists"`
	Duration float64 `json:"duration"`
	Album    float64 `json:"album"`
	ISRC     bool    `json:"isrc"` // true when an exact ISRC match forced the score to 1.0
}

// MatchCandidate is a target-catalog track scored against a source track.
type MatchCandidate struct {
	Track     TrackRef       `json:"track"`
	Score     float64        `json:"score"` // in [0,1]
	Breakdown ScoreBreakdown `json:"breakdown"`
}

// Outcome classifies the result of resolving one source track.
type Outcome string

const (
	OutcomeMatched       Outcome = "matched"
	OutcomeNoMatch       Outcome = "no_match"
	OutcomeAmbiguous     Outcome = "ambiguous_match"
	OutcomeProviderError Outcome = "provider_error"
)

// TransferItemResult is the outcome for a single source track. Exactly one
// is produced per source track, independent of every other track.
type TransferItemResult struct {
	Source  TrackRef  `json:"source"`
	Outcome Outcome   `json:"outcome"`
	Matched *TrackRef `json:"matched,omitempty"` // set for matched and ambiguous outcomes
	Score   float64   `json:"score,omitempty"`
	Err     string    `json:"error,omitempty"`
}

// JobStatus is the lifecycle state of a transfer job.
type JobStatus string

const (
	StatusCreated             JobStatus = "created"
	StatusFetchingSource      JobStatus = "fetching_source"
	StatusResolving           JobStatus = "resolving"
	StatusWriting             JobStatus = "writing"
	StatusCompleted           JobStatus = "completed"
	StatusCompletedWithErrors JobStatus = "completed_with_errors"
	StatusFailed              JobStatus = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCompletedWithErrors, StatusFailed:
		return true
	}
	return false
}

// OutcomeCounts tallies item outcomes for a report.
type OutcomeCounts struct {
	Matched   int `json:"matched"`
	NoMatch   int `json:"no_match"`
	Ambiguous int `json:"ambiguous_match"`
	Errors    int `json:"provider_error"`
}

// JobReport is the immutable outcome of a transfer job.
//
// Items has the same length and order as the source playlist's tracks so
// callers can reconcile index-for-index. Snapshot reads during Resolving and
// Writing return a report with the outcomes recorded so far.
type JobReport struct {
	ID     string              `json:"id"`
	Status JobStatus           `json:"status"`
	Source PlaylistRef         `json:"source"`
	Target *PlaylistRef        `json:"target,omitempty"` // nil until the target playlist exists
	Items  []TransferItemResult `json:"items"`
	Counts OutcomeCounts       `json:"counts"`
}

// Tally recomputes Counts from Items.
func (r *JobReport) Tally() {
	var c OutcomeCounts
	for _, item := range r.Items {
		switch item.Outcome {
		case OutcomeMatched:
			c.Matched++
		case OutcomeNoMatch:
			c.NoMatch++
		case OutcomeAmbiguous:
			c.Ambiguous++
		case OutcomeProviderError:
			c.Errors++
		}
	}
	r.Counts = c
}
