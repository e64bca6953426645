package services_test

import (
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhalloran/scrawl/internal/auth"
	"github.com/dhalloran/scrawl/internal/captcha"
	"github.com/dhalloran/scrawl/internal/models"
	"github.com/dhalloran/scrawl/internal/render"
	"github.com/dhalloran/scrawl/internal/services"
	"github.com/dhalloran/scrawl/internal/session"
	pkglogger "github.com/dhalloran/scrawl/pkg/logger"
)

const desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

type serviceFixture struct {
	service *services.ChallengeService
	store   *session.Store
	tokens  *auth.TokenManager

	now    time.Time
	timers []func()
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	f := &serviceFixture{
		store:  session.NewStore(),
		tokens: auth.NewTokenManager("service-test-secret-32-character", 5*time.Minute),
		now:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	// A permissive validator: text and timing only. The behavioral gates
	// have their own tests.
	cfg := captcha.DefaultValidatorConfig()
	cfg.MinMovementSamples = 0
	cfg.MaxAxisAlignedFraction = 1.1

	f.service = services.NewChallengeService(
		f.store,
		captcha.NewGenerator(rand.NewSource(1)),
		render.NewRenderer(render.Config{}, &render.FontSet{}, rand.NewSource(2)),
		captcha.NewValidator(cfg),
		f.tokens,
		services.ChallengeConfig{
			Width:               320,
			SessionTTL:          10 * time.Minute,
			WrongTextRetryDelay: 1500 * time.Millisecond,
			BotlikeRetryDelay:   2000 * time.Millisecond,
		},
		logger,
		pkglogger.NewVerdictLogger(logger),
	)
	f.service.SetClock(func() time.Time { return f.now })
	f.service.SetScheduler(func(d time.Duration, fn func()) {
		f.timers = append(f.timers, fn)
	})

	return f
}

func (f *serviceFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *serviceFixture) fireTimers() {
	timers := f.timers
	f.timers = nil
	for _, fn := range timers {
		fn()
	}
}

func (f *serviceFixture) challengeText(t *testing.T, id string) string {
	t.Helper()
	sess, err := f.store.Get(id, f.now)
	require.NoError(t, err)
	return sess.Challenge()
}

func TestChallengeService_Start(t *testing.T) {
	f := newFixture(t)

	view, err := f.service.Start(desktopUA, 0)
	require.NoError(t, err)

	assert.NotEmpty(t, view.SessionID)
	assert.Equal(t, "active", view.State)
	assert.Equal(t, "desktop", view.DeviceClass)
	assert.Equal(t, captcha.Length, view.Length)
	assert.True(t, strings.HasPrefix(view.Image, "data:image/png;base64,"))
	assert.Equal(t, 320, view.Width)
	assert.Len(t, view.Decoys, 10)

	// The stored challenge matches the advertised length.
	assert.Len(t, f.challengeText(t, view.SessionID), captcha.Length)
}

func TestChallengeService_VerifySuccessIssuesToken(t *testing.T) {
	f := newFixture(t)

	view, err := f.service.Start(desktopUA, 0)
	require.NoError(t, err)
	f.advance(2 * time.Second)

	result, err := f.service.Verify(view.SessionID, f.challengeText(t, view.SessionID), "203.0.113.9")
	require.NoError(t, err)

	assert.Equal(t, captcha.OutcomeVerified, result.Outcome)
	require.NotEmpty(t, result.Token)

	sessionID, err := f.tokens.ValidateVerificationToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, view.SessionID, sessionID)
}

func TestChallengeService_VerifyWrongTextSchedulesRegeneration(t *testing.T) {
	f := newFixture(t)

	view, err := f.service.Start(desktopUA, 0)
	require.NoError(t, err)
	f.advance(2 * time.Second)

	before := f.challengeText(t, view.SessionID)
	result, err := f.service.Verify(view.SessionID, "zzzzzz", "203.0.113.9")
	require.NoError(t, err)

	assert.Equal(t, captcha.OutcomeRetryWrongText, result.Outcome)
	assert.EqualValues(t, 1500, result.RetryAfterMs)
	require.Len(t, f.timers, 1)

	// During the cooldown the view carries no image.
	waiting, err := f.service.Challenge(view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "retry_wait", waiting.State)
	assert.Empty(t, waiting.Image)

	f.advance(1500 * time.Millisecond)
	f.fireTimers()

	fresh, err := f.service.Challenge(view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "active", fresh.State)
	assert.NotEmpty(t, fresh.Image)
	assert.NotEqual(t, before, f.challengeText(t, view.SessionID))
}

func TestChallengeService_VerifyTooFastIsBotlike(t *testing.T) {
	f := newFixture(t)

	view, err := f.service.Start(desktopUA, 0)
	require.NoError(t, err)

	result, err := f.service.Verify(view.SessionID, f.challengeText(t, view.SessionID), "203.0.113.9")
	require.NoError(t, err)

	assert.Equal(t, captcha.OutcomeRetryBotlike, result.Outcome)
	assert.EqualValues(t, 2000, result.RetryAfterMs)
	assert.Empty(t, result.Token)
}

func TestChallengeService_PartialInputStaysPending(t *testing.T) {
	f := newFixture(t)

	view, err := f.service.Start(desktopUA, 0)
	require.NoError(t, err)
	f.advance(2 * time.Second)

	result, err := f.service.Verify(view.SessionID, "A3c", "203.0.113.9")
	require.NoError(t, err)

	assert.Equal(t, captcha.OutcomePending, result.Outcome)
	assert.Empty(t, f.timers)

	// Still active and solvable.
	current, err := f.service.Challenge(view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "active", current.State)
}

func TestChallengeService_RefreshSupersedesRetryTimer(t *testing.T) {
	f := newFixture(t)

	view, err := f.service.Start(desktopUA, 0)
	require.NoError(t, err)
	f.advance(2 * time.Second)

	_, err = f.service.Verify(view.SessionID, "zzzzzz", "203.0.113.9")
	require.NoError(t, err)
	require.Len(t, f.timers, 1)

	refreshed, err := f.service.Refresh(view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "active", refreshed.State)
	afterRefresh := f.challengeText(t, view.SessionID)

	// The stale timer fires into a bumped epoch and must change nothing.
	f.fireTimers()
	assert.Equal(t, afterRefresh, f.challengeText(t, view.SessionID))
}

func TestChallengeService_RefreshWhileActive(t *testing.T) {
	f := newFixture(t)

	view, err := f.service.Start(desktopUA, 0)
	require.NoError(t, err)
	before := f.challengeText(t, view.SessionID)

	refreshed, err := f.service.Refresh(view.SessionID)
	require.NoError(t, err)

	assert.Equal(t, "active", refreshed.State)
	assert.NotEmpty(t, refreshed.Image)
	assert.NotEqual(t, before, f.challengeText(t, view.SessionID))
}

func TestChallengeService_ConsumeIsSingleUse(t *testing.T) {
	f := newFixture(t)

	view, err := f.service.Start(desktopUA, 0)
	require.NoError(t, err)
	f.advance(2 * time.Second)

	result, err := f.service.Verify(view.SessionID, f.challengeText(t, view.SessionID), "203.0.113.9")
	require.NoError(t, err)
	require.Equal(t, captcha.OutcomeVerified, result.Outcome)

	require.NoError(t, f.service.Consume(result.Token))

	// Redemption resets the session to a fresh active challenge, so the
	// token cannot gate a second submission.
	fresh, err := f.service.Challenge(view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "active", fresh.State)

	err = f.service.Consume(result.Token)
	assert.ErrorIs(t, err, models.ErrSessionNotReady)
}

func TestChallengeService_ConsumeInvalidToken(t *testing.T) {
	f := newFixture(t)

	err := f.service.Consume("garbage")
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestChallengeService_UnknownSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Challenge("missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.service.Verify("missing", "A3cDkP", "203.0.113.9")
	assert.ErrorIs(t, err, models.ErrNotFound)

	err = f.service.RecordEvents("missing", nil, nil)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestChallengeService_ExpiredSession(t *testing.T) {
	f := newFixture(t)

	view, err := f.service.Start(desktopUA, 0)
	require.NoError(t, err)

	f.advance(11 * time.Minute)

	_, err = f.service.Challenge(view.SessionID)
	assert.ErrorIs(t, err, models.ErrSessionExpired)
}

func TestChallengeService_RecordEvents(t *testing.T) {
	f := newFixture(t)

	view, err := f.service.Start(desktopUA, 0)
	require.NoError(t, err)

	err = f.service.RecordEvents(view.SessionID,
		[]services.MovementEvent{{X: 1, Y: 2, T: f.now}, {X: 3, Y: 4, T: f.now}},
		[]services.KeyEvent{{Key: "a", T: f.now}},
	)
	require.NoError(t, err)

	sess, err := f.store.Get(view.SessionID, f.now)
	require.NoError(t, err)
	assert.Equal(t, 2, sess.MovementCount())
	assert.Equal(t, 1, sess.KeyCount())
}
