package controllers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amaumene/goplexarr/internal/models"
	"github.com/amaumene/goplexarr/internal/services/plex"
	"github.com/amaumene/goplexarr/internal/utils"
	"github.com/sirupsen/logrus"
)

// PlaybackSource is the capability the tracker polls for active sessions
// and final track metadata
type PlaybackSource interface {
	GetActiveSessions(ctx context.Context, clientFilter string) ([]plex.PlaybackSession, error)
	GetTrackDetail(ctx context.Context, trackID string) (*plex.TrackDetail, error)
}

// TrackerController owns the playback-session state machine. Sessions move
// playing -> pending_finalization -> finalized entirely inside RunCycle;
// nothing else mutates the session map.
type TrackerController struct {
	db     *models.Database
	source PlaybackSource
	purge  *PurgeController
	logger *logrus.Logger

	clientFilter string
	grace        time.Duration

	// now is swapped for a fake clock in tests
	now func() time.Time

	// cycleMu serializes whole poll cycles; mu guards the session map for
	// snapshot readers
	cycleMu  sync.Mutex
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

// NewTrackerController creates a new session tracker
func NewTrackerController(db *models.Database, source PlaybackSource, purge *PurgeController, clientFilter string, grace time.Duration, logger *logrus.Logger) *TrackerController {
	return &TrackerController{
		db:           db,
		source:       source,
		purge:        purge,
		logger:       logger,
		clientFilter: clientFilter,
		grace:        grace,
		now:          time.Now,
		sessions:     make(map[string]*models.Session),
	}
}

// RunCycle executes one poll cycle: refresh the session map from Plex,
// start the grace timer for vanished sessions and finalize the ones whose
// deadline has passed. Any failure is recoverable; the next tick simply
// runs another cycle.
func (c *TrackerController) RunCycle(ctx context.Context) error {
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()

	active, err := c.source.GetActiveSessions(ctx, c.clientFilter)
	if err != nil {
		return fmt.Errorf("failed to poll sessions: %w", err)
	}

	now := c.now()
	due := c.applyObservations(active, now)

	// Finalization completes before the next cycle can touch the map
	for _, session := range due {
		c.finalizeSession(ctx, session)
	}

	return nil
}

// applyObservations folds one poll result into the session map and returns
// the sessions whose grace deadline has elapsed
func (c *TrackerController) applyObservations(active []plex.PlaybackSession, now time.Time) []*models.Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]bool, len(active))

	for _, obs := range active {
		seen[obs.SessionKey] = true

		session, ok := c.sessions[obs.SessionKey]
		if !ok {
			session = &models.Session{
				SessionKey: obs.SessionKey,
				TrackID:    obs.TrackID,
				GUID:       obs.GUID,
				Title:      obs.Title,
				Artist:     obs.Artist,
				Album:      obs.Album,
				Player:     obs.Player,
				State:      models.StatePlaying,
				StartedAt:  now,
			}
			c.sessions[obs.SessionKey] = session

			c.logger.WithFields(logrus.Fields{
				"session_key": obs.SessionKey,
				"artist":      obs.Artist,
				"title":       obs.Title,
				"player":      obs.Player,
			}).Info("New playback session")

			c.recordNowPlaying(obs, now)
		}

		if session.State == models.StatePendingFinalization {
			// Came back before the deadline; a reporting gap, not an end
			c.logger.WithFields(logrus.Fields{
				"session_key": obs.SessionKey,
				"title":       session.Title,
			}).Debug("Session reappeared within grace window")
			session.State = models.StatePlaying
			session.FinalizeAt = time.Time{}
		}

		session.LastSeenAt = now
		session.ProgressFraction = obs.ProgressFraction
	}

	var due []*models.Session
	for key, session := range c.sessions {
		if seen[key] {
			continue
		}

		if session.State == models.StatePlaying {
			session.State = models.StatePendingFinalization
			session.FinalizeAt = now.Add(c.grace)

			c.logger.WithFields(logrus.Fields{
				"session_key": key,
				"artist":      session.Artist,
				"title":       session.Title,
				"progress":    fmt.Sprintf("%.2f", session.ProgressFraction),
				"finalize_at": session.FinalizeAt,
			}).Info("Session vanished, grace timer started")
			continue
		}

		if !session.FinalizeAt.After(now) {
			due = append(due, session)
			delete(c.sessions, key)
		}
	}

	return due
}

// finalizeSession judges one ended session: fetch final metadata, map the
// rating to a verdict, persist it and react. The session is gone from the
// map whatever happens here.
func (c *TrackerController) finalizeSession(ctx context.Context, session *models.Session) {
	logger := c.logger.WithFields(logrus.Fields{
		"session_key": session.SessionKey,
		"artist":      session.Artist,
		"title":       session.Title,
	})

	if session.TrackID == "" {
		logger.Warn("Session has no track ID, skipping finalization")
		return
	}

	detail, err := c.source.GetTrackDetail(ctx, session.TrackID)
	if err != nil {
		logger.WithError(err).Warn("Failed to fetch final track metadata")
		return
	}

	verdict := utils.NormalizeRating(detail.RawRating)
	logger.WithFields(logrus.Fields{
		"raw_rating": detail.RawRating,
		"verdict":    string(verdict),
	}).Info("Final rating harvested")

	if verdict == models.VerdictNone {
		logger.Debug("No verdict, session discarded")
		return
	}

	record := &models.VerdictRecord{
		TrackID:   session.TrackID,
		Verdict:   verdict,
		Title:     detail.Title,
		Artist:    detail.Artist,
		Album:     detail.Album,
		RawRating: detail.RawRating,
		Timestamp: c.now(),
	}
	if err := c.db.AppendVerdict(record); err != nil {
		// In-memory judgement stands; the ledger just missed this one
		logger.WithError(err).Error("Failed to persist verdict")
	}

	if verdict == models.VerdictDislike {
		c.purge.PurgeTrack(ctx, session, detail)
	}
}

// recordNowPlaying persists a history entry for a newly observed session.
// Persistence failures are logged, never fatal to the cycle.
func (c *TrackerController) recordNowPlaying(obs plex.PlaybackSession, now time.Time) {
	entry := &models.NowPlayingEntry{
		SessionKey:       obs.SessionKey,
		TrackID:          obs.TrackID,
		Title:            obs.Title,
		Artist:           obs.Artist,
		Album:            obs.Album,
		Player:           obs.Player,
		ProgressFraction: obs.ProgressFraction,
		ObservedAt:       now,
	}
	if err := c.db.AppendNowPlaying(entry); err != nil {
		c.logger.WithError(err).Error("Failed to persist now-playing entry")
	}
}

// Snapshot returns a copy of the live session map for the status API;
// readers never touch the tracker's own records
func (c *TrackerController) Snapshot() []models.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := make([]models.Session, 0, len(c.sessions))
	for _, session := range c.sessions {
		snapshot = append(snapshot, *session)
	}
	return snapshot
}
