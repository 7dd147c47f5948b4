package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/amaumene/goplexarr/internal/models"
	"github.com/sirupsen/logrus"
)

// LedgerHandler serves one verdict ledger (liked or disliked) as a JSON
// array in write order
type LedgerHandler struct {
	db      *models.Database
	verdict models.Verdict
	logger  *logrus.Logger
}

// NewLedgerHandler creates a handler for the given verdict's ledger
func NewLedgerHandler(db *models.Database, verdict models.Verdict, logger *logrus.Logger) *LedgerHandler {
	return &LedgerHandler{
		db:      db,
		verdict: verdict,
		logger:  logger,
	}
}

// LedgerEntry is the serialized form of one verdict record
type LedgerEntry struct {
	TrackID   string    `json:"track_id"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	Album     string    `json:"album"`
	Rating    string    `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

// ServeHTTP handles the ledger endpoint
func (h *LedgerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, err := h.db.GetVerdicts(h.verdict)
	if err != nil {
		h.logger.WithError(err).Error("Failed to read verdict ledger")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	entries := make([]LedgerEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, LedgerEntry{
			TrackID:   record.TrackID,
			Title:     record.Title,
			Artist:    record.Artist,
			Album:     record.Album,
			Rating:    string(record.Verdict),
			Timestamp: record.Timestamp,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}
