package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/flindersec/mfad/internal/mfa/store"
)

// HousekeepingService periodically prunes expired sessions and aged
// login-attempt rows to prevent unbounded table growth. Session validity is
// decided lazily at validation time; this sweeper only reclaims storage.
type HousekeepingService struct {
	Store            store.Store
	Logger           *slog.Logger
	Interval         time.Duration
	AttemptRetention time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to 1 hour; a non-positive retention defaults to 30 days.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}

	return &HousekeepingService{
		Store:            store,
		Logger:           logger,
		Interval:         interval,
		AttemptRetention: retention,
		stopCh:           make(chan struct{}),
		doneCh:           make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs cleanup.
// This is non-blocking and should be called after the database is ready.
// Call Stop() to gracefully shutdown the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started",
		"interval", s.Interval, "attempt_retention", s.AttemptRetention)
}

// Stop gracefully shuts down the background worker.
// Blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup performs the actual deletion of stale records. Each deletion is
// independent - a failure in one won't stop the others.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	now := time.Now().UTC()

	sessions, err := s.Store.Sessions().DeleteExpiredSessions(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete expired sessions", "error", err)
	}

	attempts, err := s.Store.LoginAttempts().DeleteAttemptsBefore(ctx, now.Add(-s.AttemptRetention))
	if err != nil {
		s.Logger.Error("failed to delete old login attempts", "error", err)
	}

	if sessions > 0 || attempts > 0 {
		s.Logger.Info("housekeeping cleanup completed",
			"expired_sessions", sessions, "old_attempts", attempts)
	}
}
