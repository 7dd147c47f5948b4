package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/amaumene/goplexarr/internal/models"
	"github.com/sirupsen/logrus"
)

// FailuresHandler serves the recorded deletion failures
type FailuresHandler struct {
	db     *models.Database
	logger *logrus.Logger
}

// NewFailuresHandler creates a new failures handler
func NewFailuresHandler(db *models.Database, logger *logrus.Logger) *FailuresHandler {
	return &FailuresHandler{
		db:     db,
		logger: logger,
	}
}

// FailureEntry is the serialized form of one deletion failure
type FailureEntry struct {
	TrackID   string    `json:"track_id"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	Reason    string    `json:"reason"`
	Detail    string    `json:"detail"`
	Timestamp time.Time `json:"timestamp"`
}

// ServeHTTP handles the failures endpoint
func (h *FailuresHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	failures, err := h.db.GetDeletionFailures()
	if err != nil {
		h.logger.WithError(err).Error("Failed to read deletion failures")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	entries := make([]FailureEntry, 0, len(failures))
	for _, failure := range failures {
		entries = append(entries, FailureEntry{
			TrackID:   failure.TrackID,
			Title:     failure.Title,
			Artist:    failure.Artist,
			Reason:    string(failure.Reason),
			Detail:    failure.Detail,
			Timestamp: failure.Timestamp,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}
