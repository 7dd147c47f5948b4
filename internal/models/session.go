package models

import "time"

// Session represents one in-progress or just-ended playback, keyed by the
// session key Plex assigns. Sessions live only in the tracker's memory;
// once finalized they are gone except for their ledger entry.
type Session struct {
	SessionKey string
	TrackID    string // Plex ratingKey, stable per library item
	GUID       string // plex://track/... identifier, helps Lidarr lookups

	Title  string
	Artist string
	Album  string
	Player string // Reporting client name (e.g. "Plexamp")

	ProgressFraction float64

	State      SessionState
	StartedAt  time.Time
	LastSeenAt time.Time
	FinalizeAt time.Time // Grace deadline, zero unless pending finalization
}

// VerdictRecord is one persisted entry in the liked or disliked ledger
type VerdictRecord struct {
	ID        uint64  `boltholdKey:"ID"`
	TrackID   string  `boltholdIndex:"TrackID"`
	Verdict   Verdict `boltholdIndex:"Verdict"`
	Title     string
	Artist    string
	Album     string
	RawRating string // Rating value as Plex reported it, kept for debugging
	Timestamp time.Time
}

// DeletionFailure records a dislike purge that could not be completed,
// surfaced via the status API instead of being retried
type DeletionFailure struct {
	ID        uint64 `boltholdKey:"ID"`
	TrackID   string `boltholdIndex:"TrackID"`
	Title     string
	Artist    string
	Reason    FailureReason
	Detail    string
	Timestamp time.Time
}

// NowPlayingEntry is a persisted snapshot of one observed playback,
// informational only
type NowPlayingEntry struct {
	ID               uint64 `boltholdKey:"ID"`
	SessionKey       string
	TrackID          string
	Title            string
	Artist           string
	Album            string
	Player           string
	ProgressFraction float64
	ObservedAt       time.Time
}
