// Package match resolves tracks from one provider's catalog against
// another's. Resolution is deterministic: the same source track and the
// same candidate set always produce the same outcome.
package match

import (
	"context"
	"sort"
	"strings"

	"github.com/tracklift/tracklift/internal/models"
	"github.com/tracklift/tracklift/internal/services"
	"github.com/tracklift/tracklift/internal/shared"
)

// Weights and thresholds for candidate scoring. Zero values fall back to
// the defaults below.
type Config struct {
	MatchThreshold     float64
	AmbiguousThreshold float64
	TitleWeight        float64
	ArtistWeight       float64
	DurationWeight     float64
	AlbumWeight        float64
}

// DefaultConfig returns the tuning used when the config file does not
// override it.
func DefaultConfig() Config {
	return Config{
		MatchThreshold:     0.85,
		AmbiguousThreshold: 0.60,
		TitleWeight:        0.45,
		ArtistWeight:       0.35,
		DurationWeight:     0.10,
		AlbumWeight:        0.10,
	}
}

// FromMatching builds a scoring config from the file-level matching section,
// filling in defaults for anything left unset.
func FromMatching(m shared.MatchingConfig) Config {
	cfg := DefaultConfig()
	if m.MatchThreshold > 0 {
		cfg.MatchThreshold = m.MatchThreshold
	}
	if m.AmbiguousThreshold > 0 {
		cfg.AmbiguousThreshold = m.AmbiguousThreshold
	}
	if m.TitleWeight > 0 {
		cfg.TitleWeight = m.TitleWeight
	}
	if m.ArtistWeight > 0 {
		cfg.ArtistWeight = m.ArtistWeight
	}
	if m.DurationWeight > 0 {
		cfg.DurationWeight = m.DurationWeight
	}
	if m.AlbumWeight > 0 {
		cfg.AlbumWeight = m.AlbumWeight
	}
	return cfg
}

// Resolver finds the best counterpart for a source track in the target
// provider's catalog.
type Resolver struct {
	target services.Provider
	cfg    Config
}

func NewResolver(target services.Provider, cfg Config) *Resolver {
	return &Resolver{target: target, cfg: cfg}
}

// Resolve searches the target catalog for the source track and classifies
// the best candidate. A provider failure is returned as an error so the
// caller can record the item as a provider error rather than a miss.
func (r *Resolver) Resolve(ctx context.Context, source models.TrackRef) (*models.MatchCandidate, models.Outcome, error) {
	var candidates []models.TrackRef

	if source.ISRC != "" {
		found, err := r.target.SearchTracks(ctx, services.SearchQuery{ISRC: source.ISRC})
		if err != nil {
			return nil, models.OutcomeProviderError, err
		}
		candidates = found
	}

	// ISRC lookups miss for regional releases and re-issues; fall through to
	// a text search whenever the code turned nothing up.
	if len(candidates) == 0 {
		found, err := r.target.SearchTracks(ctx, services.SearchQuery{
			Title:  source.Title,
			Artist: source.PrimaryArtist(),
		})
		if err != nil {
			return nil, models.OutcomeProviderError, err
		}
		candidates = found
	}

	best := r.Best(source, candidates)
	outcome := r.Outcome(best)
	if outcome == models.OutcomeNoMatch {
		return nil, outcome, nil
	}
	return best, outcome, nil
}

// Best scores every candidate against the source and returns the winner,
// or nil for an empty candidate set.
func (r *Resolver) Best(source models.TrackRef, candidates []models.TrackRef) *models.MatchCandidate {
	if len(candidates) == 0 {
		return nil
	}

	scored := make([]models.MatchCandidate, 0, len(candidates))
	for _, c := range candidates {
		score, breakdown := r.Score(source, c)
		scored = append(scored, models.MatchCandidate{Track: c, Score: score, Breakdown: breakdown})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Breakdown.ISRC != b.Breakdown.ISRC {
			return a.Breakdown.ISRC
		}
		da := editDistance(shared.NormalizeTitle(source.Title), shared.NormalizeTitle(a.Track.Title))
		db := editDistance(shared.NormalizeTitle(source.Title), shared.NormalizeTitle(b.Track.Title))
		if da != db {
			return da < db
		}
		return a.Track.ID < b.Track.ID
	})

	return &scored[0]
}

// Score computes the weighted similarity between a source track and one
// candidate. An exact ISRC match overrides the weighted sum.
func (r *Resolver) Score(source, candidate models.TrackRef) (float64, models.ScoreBreakdown) {
	b := models.ScoreBreakdown{
		Title:    similarity(shared.NormalizeTitle(source.Title), shared.NormalizeTitle(candidate.Title)),
		Artists:  artistSimilarity(source, candidate),
		Duration: durationScore(source.Duration, candidate.Duration),
		Album:    similarity(shared.NormalizeTitle(source.Album), shared.NormalizeTitle(candidate.Album)),
	}

	if source.ISRC != "" && strings.EqualFold(source.ISRC, candidate.ISRC) {
		b.ISRC = true
		return 1.0, b
	}

	score := r.cfg.TitleWeight*b.Title +
		r.cfg.ArtistWeight*b.Artists +
		r.cfg.DurationWeight*b.Duration +
		r.cfg.AlbumWeight*b.Album
	return score, b
}

// Outcome classifies a scored candidate under the configured thresholds.
func (r *Resolver) Outcome(best *models.MatchCandidate) models.Outcome {
	switch {
	case best == nil:
		return models.OutcomeNoMatch
	case best.Score >= r.cfg.MatchThreshold:
		return models.OutcomeMatched
	case best.Score >= r.cfg.AmbiguousThreshold:
		return models.OutcomeAmbiguous
	default:
		return models.OutcomeNoMatch
	}
}

// artistSimilarity is the Jaccard index over the normalized artist sets,
// with artists named in a "(feat. X)" title suffix folded into the set.
func artistSimilarity(source, candidate models.TrackRef) float64 {
	a := artistSet(source)
	b := artistSet(candidate)
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	var intersection int
	for name := range a {
		if _, ok := b[name]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

func artistSet(t models.TrackRef) map[string]struct{} {
	set := make(map[string]struct{}, len(t.Artists)+1)
	for _, a := range t.Artists {
		if n := shared.NormalizeArtist(a); n != "" {
			set[n] = struct{}{}
		}
	}
	for _, a := range shared.FeaturedArtists(t.Title) {
		if n := shared.NormalizeArtist(a); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// durationScore gives full credit within 3 seconds and decays linearly to
// zero at 10 seconds of difference.
func durationScore(a, b int) float64 {
	if a == 0 || b == 0 {
		return 0
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff <= 3:
		return 1
	case diff >= 10:
		return 0
	default:
		return 1 - float64(diff-3)/7
	}
}

// similarity is a normalized Levenshtein ratio in [0, 1].
func similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	return 1 - float64(editDistance(a, b))/float64(longest)
}

// editDistance is the Levenshtein distance over runes, two-row variant.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
