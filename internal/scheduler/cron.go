package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/amaumene/goplexarr/internal/controllers"
	"github.com/amaumene/goplexarr/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// nowPlayingKeep is how many history entries survive the hourly trim
const nowPlayingKeep = 100

// Scheduler manages the poll tick and housekeeping jobs
type Scheduler struct {
	cron        *cron.Cron
	trackerCtrl *controllers.TrackerController
	db          *models.Database
	logger      *logrus.Logger

	pollInterval time.Duration
}

// NewScheduler creates a new scheduler
func NewScheduler(trackerCtrl *controllers.TrackerController, db *models.Database, pollInterval time.Duration, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:         cron.New(),
		trackerCtrl:  trackerCtrl,
		db:           db,
		logger:       logger,
		pollInterval: pollInterval,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.logger.Info("Starting scheduler")

	// Every poll interval: run one tracker cycle
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.pollInterval), func() {
		s.runPoll()
	})
	if err != nil {
		return fmt.Errorf("failed to add poll job: %w", err)
	}

	// Every hour: trim the now-playing history
	_, err = s.cron.AddFunc("0 * * * *", func() {
		s.runHistoryTrim()
	})
	if err != nil {
		return fmt.Errorf("failed to add history trim job: %w", err)
	}

	s.cron.Start()
	s.logger.WithField("poll_interval", s.pollInterval).Info("Scheduler started")

	// Run an initial cycle immediately so /now fills without waiting a tick
	go s.runPoll()

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cron.Stop()
}

// runPoll executes one tracker cycle; a failed cycle is logged and the
// next tick tries again
func (s *Scheduler) runPoll() {
	ctx := context.Background()

	if err := s.trackerCtrl.RunCycle(ctx); err != nil {
		s.logger.WithError(err).Warn("Poll cycle failed")
	}
}

// runHistoryTrim executes the now-playing history trim job
func (s *Scheduler) runHistoryTrim() {
	s.logger.Debug("Running now-playing history trim")

	trimmed, err := s.db.TrimNowPlaying(nowPlayingKeep)
	if err != nil {
		s.logger.WithError(err).Error("History trim failed")
		return
	}
	if trimmed > 0 {
		s.logger.WithField("trimmed", trimmed).Info("Now-playing history trimmed")
	}
}
