package background_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dhalloran/scrawl/internal/background"
	"github.com/dhalloran/scrawl/internal/device"
	"github.com/dhalloran/scrawl/internal/session"
)

func TestCleanupManager_RemovesExpiredSessions(t *testing.T) {
	store := session.NewStore()
	past := time.Now().Add(-time.Hour)
	store.Put(session.New("expired-1", "A3cDkP", device.Desktop, past, time.Minute))
	store.Put(session.New("expired-2", "A3cDkP", device.Desktop, past, time.Minute))
	store.Put(session.New("live", "A3cDkP", device.Desktop, time.Now(), time.Hour))

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	cm := background.NewCleanupManager(store, logger, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cm.Start(ctx)
		close(done)
	}()

	// The first sweep runs immediately on startup.
	assert.Eventually(t, func() bool {
		return store.Len() == 1
	}, time.Second, 10*time.Millisecond)

	_, err := store.Get("live", time.Now())
	assert.NoError(t, err)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup manager did not stop on context cancel")
	}
}

func TestCleanupManager_StopHaltsLoop(t *testing.T) {
	store := session.NewStore()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	cm := background.NewCleanupManager(store, logger, time.Hour)

	done := make(chan struct{})
	go func() {
		cm.Start(context.Background())
		close(done)
	}()

	cm.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup manager did not stop")
	}
}
