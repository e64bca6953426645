package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/dhalloran/scrawl/internal/session"
)

// CleanupManager periodically prunes expired challenge sessions from the
// in-memory store. Nothing is persisted, so pruning is the only thing
// standing between an abandoned session and a leak.
type CleanupManager struct {
	store    *session.Store
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(store *session.Store, logger *slog.Logger, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		store:    store,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup()

	for {
		select {
		case <-ticker.C:
			cm.runCleanup()
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// runCleanup removes expired sessions from the store
func (cm *CleanupManager) runCleanup() {
	removed := cm.store.PruneExpired(time.Now())
	if removed > 0 {
		cm.logger.Info("expired session cleanup completed",
			slog.Int("sessions_removed", removed),
			slog.Int("sessions_remaining", cm.store.Len()))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
