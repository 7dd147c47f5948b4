package handlers

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/amaumene/goplexarr/internal/models"
	"github.com/sirupsen/logrus"
)

// recentLimit is how many history entries /now returns alongside the live
// snapshot
const recentLimit = 10

// SessionReader provides a read-only copy of the tracker's live sessions
type SessionReader interface {
	Snapshot() []models.Session
}

// NowHandler serves the current now-playing snapshot plus recent history
type NowHandler struct {
	db      *models.Database
	tracker SessionReader
	logger  *logrus.Logger
}

// NewNowHandler creates a new now-playing handler
func NewNowHandler(db *models.Database, tracker SessionReader, logger *logrus.Logger) *NowHandler {
	return &NowHandler{
		db:      db,
		tracker: tracker,
		logger:  logger,
	}
}

// NowResponse represents the now-playing response
type NowResponse struct {
	Live   []LiveSession            `json:"live"`
	Recent []models.NowPlayingEntry `json:"recent"`
}

// LiveSession is the serialized form of one active session
type LiveSession struct {
	SessionKey       string  `json:"session_key"`
	TrackID          string  `json:"track_id"`
	Title            string  `json:"title"`
	Artist           string  `json:"artist"`
	Album            string  `json:"album"`
	Player           string  `json:"player"`
	State            string  `json:"state"`
	ProgressFraction float64 `json:"progress_fraction"`
}

// ServeHTTP handles the now-playing endpoint
func (h *NowHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessions := h.tracker.Snapshot()
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].SessionKey < sessions[j].SessionKey
	})

	live := make([]LiveSession, 0, len(sessions))
	for _, session := range sessions {
		live = append(live, LiveSession{
			SessionKey:       session.SessionKey,
			TrackID:          session.TrackID,
			Title:            session.Title,
			Artist:           session.Artist,
			Album:            session.Album,
			Player:           session.Player,
			State:            string(session.State),
			ProgressFraction: session.ProgressFraction,
		})
	}

	recent, err := h.db.GetRecentNowPlaying(recentLimit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to read now-playing history")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := NowResponse{
		Live:   live,
		Recent: make([]models.NowPlayingEntry, 0, len(recent)),
	}
	for _, entry := range recent {
		response.Recent = append(response.Recent, *entry)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
