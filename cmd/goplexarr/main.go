package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/amaumene/goplexarr/internal/api"
	"github.com/amaumene/goplexarr/internal/config"
	"github.com/amaumene/goplexarr/internal/controllers"
	"github.com/amaumene/goplexarr/internal/models"
	"github.com/amaumene/goplexarr/internal/scheduler"
	"github.com/amaumene/goplexarr/internal/services/lidarr"
	"github.com/amaumene/goplexarr/internal/services/plex"
	"github.com/amaumene/goplexarr/internal/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Setup logger
	logger := utils.NewLogger(cfg.LogLevel)
	logger.Info("Starting Goplexarr")
	logger.WithField("config_dir", filepath.Dir(cfg.DatabaseFile)).Info("Configuration loaded")

	// 3. Initialize database
	db, err := models.NewDatabase(cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	logger.Info("Database initialized")

	// 4. Initialize services
	plexClient, err := plex.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Plex client: %w", err)
	}
	logger.Info("Plex client initialized")

	var library controllers.Library
	if cfg.LidarrURL != "" {
		lidarrClient, err := lidarr.NewClient(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize Lidarr client: %w", err)
		}
		library = lidarrClient
		logger.Info("Lidarr client initialized")
	} else {
		logger.Warn("Lidarr not configured, dislikes will be recorded but not purged")
	}

	// 5. Initialize controllers
	purgeCtrl := controllers.NewPurgeController(db, library, logger)
	trackerCtrl := controllers.NewTrackerController(db, plexClient, purgeCtrl, cfg.PlexClientFilter, cfg.FinishGrace, logger)
	logger.Info("Controllers initialized")

	// 6. Initialize scheduler
	sched := scheduler.NewScheduler(trackerCtrl, db, cfg.PollInterval, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	// 7. Initialize HTTP server
	server := api.NewServer(cfg, db, trackerCtrl, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErrChan <- err
		}
	}()

	// 8. Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Goplexarr is running")

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Error during server shutdown")
		}
	}

	logger.Info("Goplexarr stopped")
	return nil
}
