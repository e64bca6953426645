package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhalloran/scrawl/internal/behavior"
	"github.com/dhalloran/scrawl/internal/captcha"
	"github.com/dhalloran/scrawl/internal/device"
	"github.com/dhalloran/scrawl/internal/models"
	"github.com/dhalloran/scrawl/internal/session"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newSession() *session.Session {
	return session.New("sess-1", "A3cDkP", device.Desktop, t0, 10*time.Minute)
}

// fixedEval returns an eval callback that always produces the given outcome.
func fixedEval(outcome captcha.Outcome) func(string, string, time.Duration, device.Class, []behavior.MovementSample, []behavior.KeySample) captcha.Outcome {
	return func(string, string, time.Duration, device.Class, []behavior.MovementSample, []behavior.KeySample) captcha.Outcome {
		return outcome
	}
}

func TestSession_AttemptPassesSnapshotToEval(t *testing.T) {
	s := newSession()
	s.RecordMovement(behavior.MovementSample{X: 1, Y: 2, T: t0})
	s.RecordKey(behavior.KeySample{Key: "a", T: t0})

	var gotInput, gotChallenge string
	var gotElapsed time.Duration
	var gotClass device.Class
	var gotMovements int
	var gotKeys int

	s.Attempt("abc", t0.Add(2*time.Second), func(input, challenge string, elapsed time.Duration, class device.Class, movements []behavior.MovementSample, keys []behavior.KeySample) captcha.Outcome {
		gotInput = input
		gotChallenge = challenge
		gotElapsed = elapsed
		gotClass = class
		gotMovements = len(movements)
		gotKeys = len(keys)
		return captcha.OutcomePending
	})

	assert.Equal(t, "abc", gotInput)
	assert.Equal(t, "A3cDkP", gotChallenge)
	assert.Equal(t, 2*time.Second, gotElapsed)
	assert.Equal(t, device.Desktop, gotClass)
	assert.Equal(t, 1, gotMovements)
	assert.Equal(t, 1, gotKeys)
}

func TestSession_VerifiedIsTerminal(t *testing.T) {
	s := newSession()

	outcome, _ := s.Attempt("A3cDkP", t0.Add(2*time.Second), fixedEval(captcha.OutcomeVerified))
	require.Equal(t, captcha.OutcomeVerified, outcome)
	assert.Equal(t, session.StateVerified, s.State())

	// Re-attempting does not re-evaluate; the eval would report a retry but
	// the session stays verified.
	outcome, _ = s.Attempt("zzzzzz", t0.Add(3*time.Second), fixedEval(captcha.OutcomeRetryWrongText))
	assert.Equal(t, captcha.OutcomeVerified, outcome)
	assert.Equal(t, session.StateVerified, s.State())
}

func TestSession_VerifiedStopsRecording(t *testing.T) {
	s := newSession()
	s.Attempt("A3cDkP", t0.Add(2*time.Second), fixedEval(captcha.OutcomeVerified))

	s.RecordMovement(behavior.MovementSample{X: 1})
	s.RecordKey(behavior.KeySample{Key: "a"})
	assert.Zero(t, s.MovementCount())
	assert.Zero(t, s.KeyCount())
}

func TestSession_RetryWaitIgnoresAttempts(t *testing.T) {
	s := newSession()

	outcome, _ := s.Attempt("zzzzzz", t0.Add(2*time.Second), fixedEval(captcha.OutcomeRetryWrongText))
	require.Equal(t, captcha.OutcomeRetryWrongText, outcome)
	assert.Equal(t, session.StateRetryWait, s.State())

	// Input during the cooldown is not evaluated.
	outcome, _ = s.Attempt("A3cDkP", t0.Add(3*time.Second), fixedEval(captcha.OutcomeVerified))
	assert.Equal(t, captcha.OutcomePending, outcome)
	assert.Equal(t, session.StateRetryWait, s.State())
}

func TestSession_RegenerateResetsAttemptState(t *testing.T) {
	s := newSession()
	s.RecordMovement(behavior.MovementSample{X: 1})
	s.Attempt("zzzzzz", t0.Add(2*time.Second), fixedEval(captcha.OutcomeRetryWrongText))

	epoch := s.Regenerate("Fresh9", t0.Add(4*time.Second), 10*time.Minute)

	assert.Equal(t, uint64(1), epoch)
	assert.Equal(t, session.StateActive, s.State())
	assert.Equal(t, "Fresh9", s.Challenge())
	assert.Zero(t, s.MovementCount())
	assert.Nil(t, s.Artifact())
}

func TestSession_RegenerateIfEpoch(t *testing.T) {
	s := newSession()
	_, epoch := s.Attempt("zzzzzz", t0.Add(2*time.Second), fixedEval(captcha.OutcomeRetryWrongText))

	t.Run("stale epoch is a no-op", func(t *testing.T) {
		// A manual refresh bumps the epoch first.
		s.Regenerate("Manual", t0.Add(3*time.Second), 10*time.Minute)

		applied := s.RegenerateIfEpoch(epoch, "Stale6", t0.Add(4*time.Second), 10*time.Minute)
		assert.False(t, applied)
		assert.Equal(t, "Manual", s.Challenge())
	})

	t.Run("matching epoch applies during cooldown", func(t *testing.T) {
		_, epoch := s.Attempt("zzzzzz", t0.Add(5*time.Second), fixedEval(captcha.OutcomeRetryWrongText))

		applied := s.RegenerateIfEpoch(epoch, "Timer7", t0.Add(6*time.Second), 10*time.Minute)
		assert.True(t, applied)
		assert.Equal(t, "Timer7", s.Challenge())
		assert.Equal(t, session.StateActive, s.State())
	})

	t.Run("ignored outside cooldown", func(t *testing.T) {
		applied := s.RegenerateIfEpoch(s.Epoch(), "Active", t0.Add(7*time.Second), 10*time.Minute)
		assert.False(t, applied)
	})
}

func TestSession_Consume(t *testing.T) {
	s := newSession()

	// Not verified yet.
	assert.ErrorIs(t, s.Consume(), models.ErrSessionNotReady)

	s.Attempt("A3cDkP", t0.Add(2*time.Second), fixedEval(captcha.OutcomeVerified))
	require.NoError(t, s.Consume())

	// Second redemption is refused.
	assert.ErrorIs(t, s.Consume(), models.ErrSessionSpent)
}

func TestSession_Expired(t *testing.T) {
	s := newSession()
	assert.False(t, s.Expired(t0.Add(9*time.Minute)))
	assert.True(t, s.Expired(t0.Add(11*time.Minute)))

	// Regeneration extends the lifetime.
	s.Attempt("zzzzzz", t0.Add(2*time.Second), fixedEval(captcha.OutcomeRetryWrongText))
	s.RegenerateIfEpoch(s.Epoch(), "Fresh9", t0.Add(5*time.Minute), 10*time.Minute)
	assert.False(t, s.Expired(t0.Add(11*time.Minute)))
}
