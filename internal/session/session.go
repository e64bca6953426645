package session

import (
	"sync"
	"time"

	"github.com/dhalloran/scrawl/internal/behavior"
	"github.com/dhalloran/scrawl/internal/captcha"
	"github.com/dhalloran/scrawl/internal/device"
	"github.com/dhalloran/scrawl/internal/models"
	"github.com/dhalloran/scrawl/internal/render"
)

// State is the lifecycle state of a challenge session.
type State string

const (
	// StateActive means a challenge is displayed and accepting input.
	StateActive State = "active"
	// StateRetryWait means a failed attempt is cooling down; a regeneration
	// has been scheduled and input is ignored until it lands.
	StateRetryWait State = "retry_wait"
	// StateVerified is terminal until an external reset: the attempt
	// passed, recording has stopped, and input is disabled.
	StateVerified State = "verified"
)

// Session owns all state for one challenge lifetime: the current challenge
// text, its rendered artifact, the behavior recorder, and the attempt
// timing. Regeneration replaces the attempt state wholesale and bumps the
// epoch; deferred timers compare their captured epoch before applying
// effects so a superseded timer cannot corrupt a newer challenge.
type Session struct {
	mu sync.Mutex

	id        string
	device    device.Class
	createdAt time.Time
	expiresAt time.Time

	epoch     uint64
	state     State
	challenge string
	startedAt time.Time
	recorder  *behavior.Recorder
	artifact  *render.Artifact
	spent     bool
}

// New creates an active session holding its first challenge.
func New(id, challenge string, class device.Class, now time.Time, ttl time.Duration) *Session {
	return &Session{
		id:        id,
		device:    class,
		createdAt: now,
		expiresAt: now.Add(ttl),
		state:     StateActive,
		challenge: challenge,
		startedAt: now,
		recorder:  behavior.NewRecorder(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Device returns the device class fixed at session creation.
func (s *Session) Device() device.Class {
	return s.device
}

// Expired reports whether the session has outlived its TTL.
func (s *Session) Expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.After(s.expiresAt)
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Epoch returns the current regeneration epoch.
func (s *Session) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Challenge returns the current challenge text.
func (s *Session) Challenge() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.challenge
}

// Artifact returns the currently rendered challenge, or nil before the
// first render lands.
func (s *Session) Artifact() *render.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.artifact
}

// SetArtifact replaces the rendered challenge. The renderer fully owns the
// display surface, so there is no merging: the previous artifact is simply
// discarded.
func (s *Session) SetArtifact(a *render.Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifact = a
}

// RecordMovement appends a pointer sample. Dropped once verified.
func (s *Session) RecordMovement(sample behavior.MovementSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return
	}
	s.recorder.RecordMovement(sample)
}

// RecordKey appends a key sample. Dropped once verified.
func (s *Session) RecordKey(sample behavior.KeySample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return
	}
	s.recorder.RecordKey(sample)
}

// MovementCount returns how many pointer samples are retained.
func (s *Session) MovementCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recorder.Movements())
}

// KeyCount returns how many key samples were captured this attempt.
func (s *Session) KeyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recorder.Keys())
}

// Attempt evaluates one input event against the current challenge under the
// session lock and applies the resulting state transition. The eval
// callback receives a consistent snapshot of the attempt. The returned
// epoch is the one the attempt was evaluated under; retry timers carry it
// so they can be discarded if a refresh supersedes them.
//
// Once verified, further attempts return OutcomeVerified without
// re-evaluating; during a retry cooldown attempts report Pending.
func (s *Session) Attempt(
	input string,
	now time.Time,
	eval func(input, challenge string, elapsed time.Duration, class device.Class, movements []behavior.MovementSample, keys []behavior.KeySample) captcha.Outcome,
) (captcha.Outcome, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateVerified:
		return captcha.OutcomeVerified, s.epoch
	case StateRetryWait:
		return captcha.OutcomePending, s.epoch
	}

	outcome := eval(input, s.challenge, now.Sub(s.startedAt), s.device, s.recorder.Movements(), s.recorder.Keys())

	switch outcome {
	case captcha.OutcomeVerified:
		s.state = StateVerified
		s.recorder.Stop()
	case captcha.OutcomeRetryWrongText, captcha.OutcomeRetryBotlike:
		s.state = StateRetryWait
	}

	return outcome, s.epoch
}

// Regenerate unconditionally replaces the attempt state with a fresh
// challenge: new text, cleared samples, reset start time, re-enabled input.
// The epoch is bumped so any pending retry timer becomes stale. Returns the
// new epoch.
func (s *Session) Regenerate(challenge string, now time.Time, ttl time.Duration) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regenerateLocked(challenge, now, ttl)
	return s.epoch
}

// RegenerateIfEpoch applies a deferred regeneration only if the session is
// still cooling down from the attempt that scheduled it. A manual refresh
// or an external reset bumps the epoch, and the stale timer becomes a no-op.
func (s *Session) RegenerateIfEpoch(epoch uint64, challenge string, now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRetryWait || s.epoch != epoch {
		return false
	}
	s.regenerateLocked(challenge, now, ttl)
	return true
}

func (s *Session) regenerateLocked(challenge string, now time.Time, ttl time.Duration) {
	s.epoch++
	s.state = StateActive
	s.challenge = challenge
	s.startedAt = now
	s.expiresAt = now.Add(ttl)
	s.recorder.Reset()
	s.artifact = nil
	s.spent = false
}

// Consume marks a verified session as spent so its verification token
// cannot be replayed. Returns false if the session is not verified or was
// already consumed.
func (s *Session) Consume() (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateVerified {
		return models.ErrSessionNotReady
	}
	if s.spent {
		return models.ErrSessionSpent
	}
	s.spent = true
	return nil
}
