package services

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/dhalloran/scrawl/internal/auth"
	"github.com/dhalloran/scrawl/internal/behavior"
	"github.com/dhalloran/scrawl/internal/captcha"
	"github.com/dhalloran/scrawl/internal/device"
	"github.com/dhalloran/scrawl/internal/render"
	"github.com/dhalloran/scrawl/internal/session"
	pkglogger "github.com/dhalloran/scrawl/pkg/logger"
	"github.com/google/uuid"
)

// ChallengeConfig holds the orchestration tuning for challenge sessions.
type ChallengeConfig struct {
	Width               int
	SessionTTL          time.Duration
	WrongTextRetryDelay time.Duration
	BotlikeRetryDelay   time.Duration
}

// ChallengeView is the client-facing projection of a session's current
// challenge: the raster as a data URI plus the vector decoy overlay.
type ChallengeView struct {
	SessionID   string              `json:"session_id"`
	State       string              `json:"state"`
	Image       string              `json:"image,omitempty"`
	Width       int                 `json:"width"`
	Height      int                 `json:"height"`
	Length      int                 `json:"length"`
	Decoys      []render.DecoyShape `json:"decoys,omitempty"`
	DeviceClass string              `json:"device_class"`
}

// VerifyResult is the outcome of one answer attempt.
type VerifyResult struct {
	Outcome      captcha.Outcome `json:"outcome"`
	Message      string          `json:"message,omitempty"`
	RetryAfterMs int64           `json:"retry_after_ms,omitempty"`
	Token        string          `json:"token,omitempty"`
}

// MovementEvent is one client-reported pointer sample.
type MovementEvent struct {
	X float64
	Y float64
	T time.Time
}

// KeyEvent is one client-reported keypress in the answer field.
type KeyEvent struct {
	Key string
	T   time.Time
}

// ChallengeService orchestrates the challenge lifecycle: generate, render,
// record, validate, and loop back through regeneration on failure.
type ChallengeService struct {
	store     *session.Store
	generator *captcha.Generator
	renderer  *render.Renderer
	validator *captcha.Validator
	tokens    *auth.TokenManager
	cfg       ChallengeConfig
	logger    *slog.Logger
	verdicts  *pkglogger.VerdictLogger

	now      func() time.Time
	schedule func(d time.Duration, f func())
}

// NewChallengeService wires the orchestrator. Clock and timer scheduling
// default to the real ones; tests substitute them via SetClock and
// SetScheduler.
func NewChallengeService(
	store *session.Store,
	generator *captcha.Generator,
	renderer *render.Renderer,
	validator *captcha.Validator,
	tokens *auth.TokenManager,
	cfg ChallengeConfig,
	logger *slog.Logger,
	verdicts *pkglogger.VerdictLogger,
) *ChallengeService {
	return &ChallengeService{
		store:     store,
		generator: generator,
		renderer:  renderer,
		validator: validator,
		tokens:    tokens,
		cfg:       cfg,
		logger:    logger,
		verdicts:  verdicts,
		now:       time.Now,
		schedule: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

// SetClock substitutes the time source. Test hook.
func (s *ChallengeService) SetClock(now func() time.Time) {
	s.now = now
}

// SetScheduler substitutes deferred timer scheduling. Test hook.
func (s *ChallengeService) SetScheduler(schedule func(d time.Duration, f func())) {
	s.schedule = schedule
}

// Start creates a new session with a freshly generated and rendered
// challenge. Device class is classified once here and fixed for the
// session's lifetime.
func (s *ChallengeService) Start(userAgent string, maxTouchPoints int) (*ChallengeView, error) {
	id := uuid.New().String()
	text := s.generator.Generate()
	class := device.Classify(userAgent, maxTouchPoints)
	now := s.now()

	sess := session.New(id, text, class, now, s.cfg.SessionTTL)

	artifact, err := s.renderer.Render(text, s.cfg.Width)
	if err != nil {
		return nil, fmt.Errorf("failed to render challenge: %w", err)
	}
	sess.SetArtifact(artifact)
	s.store.Put(sess)

	s.logger.Info("challenge session started",
		slog.String("session_id", id),
		slog.String("device_class", string(class)))

	return s.view(sess), nil
}

// Challenge returns the current challenge view for a session. During a
// retry cooldown the view carries the state but no image; once the
// regeneration lands the next call returns the fresh artifact.
func (s *ChallengeService) Challenge(id string) (*ChallengeView, error) {
	sess, err := s.store.Get(id, s.now())
	if err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

// Refresh unconditionally regenerates the session's challenge: new text,
// cleared samples, reset timer, re-enabled input. Any pending retry timer
// is superseded by the epoch bump.
func (s *ChallengeService) Refresh(id string) (*ChallengeView, error) {
	sess, err := s.store.Get(id, s.now())
	if err != nil {
		return nil, err
	}

	text := s.generator.Generate()
	epoch := sess.Regenerate(text, s.now(), s.cfg.SessionTTL)

	artifact, err := s.renderer.Render(text, s.cfg.Width)
	if err != nil {
		return nil, fmt.Errorf("failed to render challenge: %w", err)
	}
	sess.SetArtifact(artifact)

	s.logger.Info("challenge refreshed",
		slog.String("session_id", id),
		slog.Uint64("epoch", epoch))

	return s.view(sess), nil
}

// RecordEvents appends a batch of behavior samples to the session. Samples
// arriving after verification are dropped by the session itself.
func (s *ChallengeService) RecordEvents(id string, movements []MovementEvent, keys []KeyEvent) error {
	sess, err := s.store.Get(id, s.now())
	if err != nil {
		return err
	}

	for _, m := range movements {
		sess.RecordMovement(behavior.MovementSample{X: m.X, Y: m.Y, T: m.T})
	}
	for _, k := range keys {
		sess.RecordKey(behavior.KeySample{Key: k.Key, T: k.T})
	}

	return nil
}

// Verify evaluates an answer attempt. Retry outcomes schedule a deferred
// regeneration carrying the attempt's epoch, so a manual refresh in the
// meantime makes the timer a no-op. A verified attempt earns a one-time
// verification token. The client IP only feeds the verdict audit trail.
func (s *ChallengeService) Verify(id, answer, clientIP string) (*VerifyResult, error) {
	now := s.now()
	sess, err := s.store.Get(id, now)
	if err != nil {
		return nil, err
	}

	outcome, epoch := sess.Attempt(answer, now, s.validator.Evaluate)

	switch outcome {
	case captcha.OutcomeVerified:
		token, err := s.tokens.GenerateVerificationToken(id)
		if err != nil {
			return nil, fmt.Errorf("failed to issue verification token: %w", err)
		}
		s.verdicts.LogVerdict(pkglogger.VerdictEvent{
			SessionID:   id,
			Outcome:     string(outcome),
			DeviceClass: string(sess.Device()),
			Movements:   sess.MovementCount(),
			Keys:        sess.KeyCount(),
			IPAddress:   clientIP,
		})
		return &VerifyResult{
			Outcome: outcome,
			Message: "Verified. You can submit now.",
			Token:   token,
		}, nil

	case captcha.OutcomeRetryWrongText:
		s.scheduleRegeneration(sess, epoch, s.cfg.WrongTextRetryDelay)
		s.verdicts.LogVerdict(pkglogger.VerdictEvent{
			SessionID:   id,
			Outcome:     string(outcome),
			DeviceClass: string(sess.Device()),
			Movements:   sess.MovementCount(),
			Keys:        sess.KeyCount(),
			IPAddress:   clientIP,
		})
		return &VerifyResult{
			Outcome:      outcome,
			Message:      "That didn't match. A new challenge is coming up.",
			RetryAfterMs: s.cfg.WrongTextRetryDelay.Milliseconds(),
		}, nil

	case captcha.OutcomeRetryBotlike:
		s.scheduleRegeneration(sess, epoch, s.cfg.BotlikeRetryDelay)
		s.verdicts.LogVerdict(pkglogger.VerdictEvent{
			SessionID:   id,
			Outcome:     string(outcome),
			DeviceClass: string(sess.Device()),
			Movements:   sess.MovementCount(),
			Keys:        sess.KeyCount(),
			IPAddress:   clientIP,
		})
		return &VerifyResult{
			Outcome:      outcome,
			Message:      "Something looked automated. Please try the new challenge.",
			RetryAfterMs: s.cfg.BotlikeRetryDelay.Milliseconds(),
		}, nil

	default:
		return &VerifyResult{Outcome: captcha.OutcomePending}, nil
	}
}

// Consume redeems a verification token exactly once, then resets the
// session to a fresh active challenge, mirroring the post-submission reset
// of the host form.
func (s *ChallengeService) Consume(token string) error {
	sessionID, err := s.tokens.ValidateVerificationToken(token)
	if err != nil {
		return err
	}

	sess, err := s.store.Get(sessionID, s.now())
	if err != nil {
		return err
	}

	if err := sess.Consume(); err != nil {
		return err
	}

	// Post-submission reset: brand-new challenge, everything cleared.
	text := s.generator.Generate()
	sess.Regenerate(text, s.now(), s.cfg.SessionTTL)
	if artifact, err := s.renderer.Render(text, s.cfg.Width); err == nil {
		sess.SetArtifact(artifact)
	}

	return nil
}

// scheduleRegeneration arms the deferred regeneration for a failed attempt.
// The timer recomputes from current session state and checks the captured
// epoch, so firing after a manual refresh or reset has no effect.
func (s *ChallengeService) scheduleRegeneration(sess *session.Session, epoch uint64, delay time.Duration) {
	id := sess.ID()
	s.schedule(delay, func() {
		text := s.generator.Generate()
		if !sess.RegenerateIfEpoch(epoch, text, s.now(), s.cfg.SessionTTL) {
			return
		}
		artifact, err := s.renderer.Render(text, s.cfg.Width)
		if err != nil {
			s.logger.Error("failed to render regenerated challenge",
				slog.String("session_id", id),
				slog.Any("error", err))
			return
		}
		sess.SetArtifact(artifact)
		s.logger.Info("challenge regenerated after failed attempt",
			slog.String("session_id", id))
	})
}

// view projects the session's current state for the client.
func (s *ChallengeService) view(sess *session.Session) *ChallengeView {
	v := &ChallengeView{
		SessionID:   sess.ID(),
		State:       string(sess.State()),
		Length:      captcha.Length,
		DeviceClass: string(sess.Device()),
	}
	if artifact := sess.Artifact(); artifact != nil && sess.State() != session.StateRetryWait {
		v.Image = "data:image/png;base64," + base64.StdEncoding.EncodeToString(artifact.PNG)
		v.Width = artifact.Width
		v.Height = artifact.Height
		v.Decoys = artifact.Decoys
	}
	return v
}
