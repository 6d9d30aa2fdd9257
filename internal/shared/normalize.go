package shared

import (
	"regexp"
	"strings"
)

var (
	parenRe   = regexp.MustCompile(`\([^)]*\)`)
	bracketRe = regexp.MustCompile(`\[[^\]]*\]`)
	punctRe   = regexp.MustCompile(`[^\p{L}\p{N}\s'-]`)
	spaceRe   = regexp.MustCompile(`\s+`)
	featRe    = regexp.MustCompile(`(?i)\((?:feat\.?|featuring|with)\s+([^)]+)\)`)
)

// SanitizeQuery strips text for provider search queries: parenthetical and
// bracketed suffixes ("(Remastered)", "[Live]"), punctuation that breaks
// search parsers, and redundant whitespace.
func SanitizeQuery(text string) string {
	if text == "" {
		return ""
	}
	text = parenRe.ReplaceAllString(text, "")
	text = bracketRe.ReplaceAllString(text, "")
	text = punctRe.ReplaceAllString(text, " ")
	text = spaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// NormalizeTitle lowercases a track title and strips parenthetical suffixes,
// punctuation, and redundant whitespace so titles compare across catalogs.
func NormalizeTitle(title string) string {
	return strings.ToLower(SanitizeQuery(title))
}

// NormalizeArtist lowercases and strips an artist name the same way titles
// are normalized.
func NormalizeArtist(artist string) string {
	return strings.ToLower(SanitizeQuery(artist))
}

// FeaturedArtists extracts artists named in a "(feat. X)" or "(with X)"
// suffix of a title, split on commas and ampersands.
func FeaturedArtists(title string) []string {
	m := featRe.FindStringSubmatch(title)
	if m == nil {
		return nil
	}
	raw := strings.FieldsFunc(m[1], func(r rune) bool {
		return r == ',' || r == '&'
	})
	var artists []string
	for _, a := range raw {
		a = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(a), "and "))
		if a != "" {
			artists = append(artists, a)
		}
	}
	return artists
}

// NormalizeTrackKey builds a comparison key from a title and primary artist.
// Two tracks with the same key are treated as the same recording when no
// ISRC is available.
func NormalizeTrackKey(title, artist string) string {
	return NormalizeTitle(title) + "|" + NormalizeArtist(artist)
}
