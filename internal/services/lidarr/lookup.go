package lidarr

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/sirupsen/logrus"
)

// minMatchScore is the confidence floor below which a candidate is not
// trusted for deletion
const minMatchScore = 2

// fieldSimilarityFloor is the levenshtein similarity above which a field
// is considered matching
const fieldSimilarityFloor = 0.8

// TrackQuery describes the track to locate in the Lidarr library
type TrackQuery struct {
	Artist string
	Title  string
	Album  string
	GUID   string // Raw Plex guid, its tail is used as a last-resort term
}

// TrackResult is one candidate returned by /track/lookup
type TrackResult struct {
	ID         int64    `json:"id"`
	Title      string   `json:"title"`
	ArtistName string   `json:"artistName"`
	Album      AlbumRef `json:"album"`
	HasFile    bool     `json:"hasFile"`
}

// AlbumRef is the nested album object in a lookup result
type AlbumRef struct {
	Title string `json:"title"`
}

// Lookup searches the Lidarr library for the queried track across several
// search terms and returns the single best candidate, or nil when nothing
// scores above the confidence floor. Selection is deterministic: an exact
// title+artist+album match wins outright, otherwise the highest score wins
// with ties broken by the lowest track ID.
func (c *Client) Lookup(ctx context.Context, query TrackQuery) (*TrackResult, error) {
	terms := searchTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	var candidates []TrackResult
	var lastErr error

	for _, term := range terms {
		params := url.Values{}
		params.Set("term", term)

		c.logger.WithField("term", term).Debug("Querying Lidarr track lookup")

		var results []TrackResult
		if err := c.doRequest(ctx, http.MethodGet, "/track/lookup", params, &results); err != nil {
			c.logger.WithError(err).WithField("term", term).Warn("Lidarr lookup failed for term")
			lastErr = err
			continue
		}

		candidates = append(candidates, results...)
	}

	if len(candidates) == 0 {
		// Nothing came back at all; distinguish a dead Lidarr from an
		// honest empty library
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, nil
	}

	best := selectCandidate(candidates, query)
	if best == nil {
		c.logger.WithFields(logrus.Fields{
			"artist": query.Artist,
			"title":  query.Title,
		}).Info("No Lidarr candidate scored above the confidence floor")
		return nil, nil
	}

	c.logger.WithFields(logrus.Fields{
		"track_id": best.ID,
		"title":    best.Title,
		"artist":   best.ArtistName,
		"score":    scoreCandidate(*best, query),
	}).Debug("Selected Lidarr candidate")

	return best, nil
}

// searchTerms builds the lookup terms in decreasing order of specificity
func searchTerms(query TrackQuery) []string {
	var terms []string
	seen := make(map[string]bool)

	add := func(term string) {
		term = strings.TrimSpace(term)
		if term == "" || seen[term] {
			return
		}
		seen[term] = true
		terms = append(terms, term)
	}

	if query.Artist != "" && query.Title != "" {
		add(query.Artist + " " + query.Title)
	}
	if query.Artist != "" && query.Album != "" {
		add(query.Artist + " " + query.Album)
	}
	add(query.Title)
	if query.Album != "" && query.Artist != "" {
		add(query.Album + " " + query.Artist)
	}

	// Plex guids look like plex://track/XYZ; the tail sometimes matches
	if query.GUID != "" {
		parts := strings.Split(query.GUID, "/")
		add(parts[len(parts)-1])
	}

	return terms
}

// selectCandidate picks the best candidate deterministically
func selectCandidate(candidates []TrackResult, query TrackQuery) *TrackResult {
	sorted := make([]TrackResult, len(candidates))
	copy(sorted, candidates)

	sort.Slice(sorted, func(i, j int) bool {
		exactI := isExactMatch(sorted[i], query)
		exactJ := isExactMatch(sorted[j], query)
		if exactI != exactJ {
			return exactI
		}

		scoreI := scoreCandidate(sorted[i], query)
		scoreJ := scoreCandidate(sorted[j], query)
		if scoreI != scoreJ {
			return scoreI > scoreJ
		}

		return sorted[i].ID < sorted[j].ID
	})

	best := sorted[0]
	if !isExactMatch(best, query) && scoreCandidate(best, query) < minMatchScore {
		return nil
	}
	return &best
}

// isExactMatch reports a case-insensitive title+artist+album match
func isExactMatch(hit TrackResult, query TrackQuery) bool {
	return strings.EqualFold(hit.Title, query.Title) &&
		strings.EqualFold(hit.ArtistName, query.Artist) &&
		query.Album != "" && strings.EqualFold(hit.Album.Title, query.Album)
}

// scoreCandidate scores a candidate against the query: two points per
// matching field, one point for having a file on disk
func scoreCandidate(hit TrackResult, query TrackQuery) int {
	score := 0
	if fieldMatches(hit.ArtistName, query.Artist) {
		score += 2
	}
	if fieldMatches(hit.Title, query.Title) {
		score += 2
	}
	if fieldMatches(hit.Album.Title, query.Album) {
		score += 2
	}
	if hit.HasFile {
		score++
	}
	return score
}

// fieldMatches compares two metadata fields, tolerating small differences
// in punctuation or remaster suffixes via levenshtein similarity
func fieldMatches(got, want string) bool {
	got = strings.ToLower(strings.TrimSpace(got))
	want = strings.ToLower(strings.TrimSpace(want))
	if got == "" || want == "" {
		return false
	}
	if got == want || strings.Contains(got, want) {
		return true
	}
	return similarity(got, want) >= fieldSimilarityFloor
}

// similarity returns 1 for identical strings, 0 for entirely different
func similarity(a, b string) float64 {
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
