package utils

import (
	"math"
	"strconv"

	"github.com/amaumene/goplexarr/internal/models"
)

// NormalizeRating maps a raw Plex userRating value to a verdict.
// Plex reports ratings on a 10 point scale; thumbs in Plexamp land on the
// extremes. Half-stars are ignored:
//
//	10 or 5 -> like
//	2 or 1  -> dislike
//	anything else (including absent or unparseable) -> none
//
// The mapping is pure: the same input always yields the same verdict.
func NormalizeRating(raw string) models.Verdict {
	if raw == "" {
		return models.VerdictNone
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return models.VerdictNone
	}

	// Tolerate float noise around the known buckets
	if near(value, 10.0) || near(value, 5.0) {
		return models.VerdictLike
	}
	if near(value, 2.0) || near(value, 1.0) {
		return models.VerdictDislike
	}

	return models.VerdictNone
}

func near(value, target float64) bool {
	return math.Abs(value-target) < 0.1
}
