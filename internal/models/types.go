package models

// Verdict represents the final judgement of a finished track
type Verdict string

const (
	VerdictLike    Verdict = "like"
	VerdictDislike Verdict = "dislike"
	VerdictNone    Verdict = "" // Neutral/unrecognized rating, nothing recorded
)

// SessionState represents where a tracked session is in its lifecycle
type SessionState string

const (
	StatePlaying             SessionState = "playing"
	StatePendingFinalization SessionState = "pending_finalization" // Vanished, grace timer running
)

// FailureReason categorizes why a dislike purge did not reach Lidarr
type FailureReason string

const (
	FailureNoMatch   FailureReason = "no_match"   // Lookup returned nothing confident
	FailureDeleteErr FailureReason = "delete_err" // Lidarr rejected the delete call
)
