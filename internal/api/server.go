package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/amaumene/goplexarr/internal/api/handlers"
	"github.com/amaumene/goplexarr/internal/api/middleware"
	"github.com/amaumene/goplexarr/internal/config"
	"github.com/amaumene/goplexarr/internal/controllers"
	"github.com/amaumene/goplexarr/internal/models"
	"github.com/sirupsen/logrus"
)

// Server represents the read-only status HTTP server
type Server struct {
	server      *http.Server
	db          *models.Database
	trackerCtrl *controllers.TrackerController
	logger      *logrus.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, db *models.Database, trackerCtrl *controllers.TrackerController, logger *logrus.Logger) *Server {
	s := &Server{
		db:          db,
		trackerCtrl: trackerCtrl,
		logger:      logger,
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.server = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      middleware.Logging(mux, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(mux *http.ServeMux) {
	healthHandler := handlers.NewHealthHandler(s.logger)
	mux.HandleFunc("/health", healthHandler.ServeHTTP)

	likedHandler := handlers.NewLedgerHandler(s.db, models.VerdictLike, s.logger)
	mux.HandleFunc("/liked", likedHandler.ServeHTTP)

	dislikedHandler := handlers.NewLedgerHandler(s.db, models.VerdictDislike, s.logger)
	mux.HandleFunc("/disliked", dislikedHandler.ServeHTTP)

	nowHandler := handlers.NewNowHandler(s.db, s.trackerCtrl, s.logger)
	mux.HandleFunc("/now", nowHandler.ServeHTTP)

	failuresHandler := handlers.NewFailuresHandler(s.db, s.logger)
	mux.HandleFunc("/failures", failuresHandler.ServeHTTP)
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("port", s.server.Addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
