package controllers

import (
	"context"
	"time"

	"github.com/amaumene/goplexarr/internal/models"
	"github.com/amaumene/goplexarr/internal/services/lidarr"
	"github.com/amaumene/goplexarr/internal/services/plex"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// Library is the capability a dislike purge needs from the library manager
type Library interface {
	Lookup(ctx context.Context, query lidarr.TrackQuery) (*lidarr.TrackResult, error)
	DeleteTrack(ctx context.Context, trackID int64) error
}

// PurgeController reacts to a dislike by deleting the track from Lidarr.
// A failed purge is recorded once and not retried; a purge that succeeded
// is never re-triggered for the same track within this run.
type PurgeController struct {
	db      *models.Database
	library Library
	deleted *cache.Cache // Track IDs confirmed deleted this run
	logger  *logrus.Logger
}

// NewPurgeController creates a new purge controller. library may be nil
// when Lidarr is not configured; dislikes are then recorded but nothing is
// deleted.
func NewPurgeController(db *models.Database, library Library, logger *logrus.Logger) *PurgeController {
	return &PurgeController{
		db:      db,
		library: library,
		deleted: cache.New(cache.NoExpiration, 0),
		logger:  logger,
	}
}

// PurgeTrack locates the disliked track in Lidarr and requests deletion of
// the record and its backing file
func (c *PurgeController) PurgeTrack(ctx context.Context, session *models.Session, detail *plex.TrackDetail) {
	logger := c.logger.WithFields(logrus.Fields{
		"track_id": session.TrackID,
		"artist":   detail.Artist,
		"title":    detail.Title,
	})

	if c.library == nil {
		logger.Warn("Lidarr not configured, dislike recorded without deletion")
		return
	}

	if _, found := c.deleted.Get(session.TrackID); found {
		logger.Info("Track already deleted this run, skipping purge")
		return
	}

	query := lidarr.TrackQuery{
		Artist: detail.Artist,
		Title:  detail.Title,
		Album:  detail.Album,
		GUID:   detail.GUID,
	}

	match, err := c.library.Lookup(ctx, query)
	if err != nil {
		logger.WithError(err).Warn("Lidarr lookup failed")
		c.recordFailure(session, detail, models.FailureNoMatch, err.Error())
		return
	}
	if match == nil {
		logger.Info("Could not confidently match track for deletion")
		c.recordFailure(session, detail, models.FailureNoMatch, "no confident match in library")
		return
	}

	logger.WithFields(logrus.Fields{
		"lidarr_track_id": match.ID,
		"lidarr_title":    match.Title,
		"lidarr_artist":   match.ArtistName,
	}).Info("Requesting Lidarr deletion")

	if err := c.library.DeleteTrack(ctx, match.ID); err != nil {
		logger.WithError(err).Warn("Lidarr deletion failed")
		c.recordFailure(session, detail, models.FailureDeleteErr, err.Error())
		return
	}

	c.deleted.Set(session.TrackID, true, cache.NoExpiration)
	logger.Info("Disliked track purged from library")
}

// recordFailure persists the failed purge so it is observable via the
// status API
func (c *PurgeController) recordFailure(session *models.Session, detail *plex.TrackDetail, reason models.FailureReason, failureDetail string) {
	failure := &models.DeletionFailure{
		TrackID:   session.TrackID,
		Title:     detail.Title,
		Artist:    detail.Artist,
		Reason:    reason,
		Detail:    failureDetail,
		Timestamp: time.Now(),
	}
	if err := c.db.AppendDeletionFailure(failure); err != nil {
		c.logger.WithError(err).Error("Failed to persist deletion failure")
	}
}
