package captcha

import (
	"time"

	"github.com/dhalloran/scrawl/internal/behavior"
	"github.com/dhalloran/scrawl/internal/device"
)

// Outcome is the result of evaluating one answer attempt.
type Outcome string

const (
	// OutcomePending means the input is still shorter than the challenge
	// and has not matched; no feedback is given yet.
	OutcomePending Outcome = "pending"
	// OutcomeVerified means the attempt passed text, timing and behavioral
	// gates.
	OutcomeVerified Outcome = "verified"
	// OutcomeRetryWrongText means the input reached full length without
	// matching the challenge.
	OutcomeRetryWrongText Outcome = "retry_wrong_text"
	// OutcomeRetryBotlike means the text matched but the timing or
	// behavioral gates classified the attempt as automated.
	OutcomeRetryBotlike Outcome = "retry_botlike"
)

// Retry reports whether the outcome requires a challenge regeneration.
func (o Outcome) Retry() bool {
	return o == OutcomeRetryWrongText || o == OutcomeRetryBotlike
}

// ValidatorConfig holds the tunable gates of the classifier. Defaults
// implement the contract: a 1200ms minimum solve time on both device
// classes (mobile relaxed from an earlier 1500ms baseline), at least 3
// pointer samples on desktop, keystroke interval variance above 100ms²
// when enough keys were seen, and under 70% perfectly axis-aligned pointer
// deltas.
type ValidatorConfig struct {
	MinSolveTimeDesktop    time.Duration
	MinSolveTimeMobile     time.Duration
	MinMovementSamples     int
	KeyVarianceThreshold   float64
	MaxAxisAlignedFraction float64
}

// DefaultValidatorConfig returns the production gate thresholds.
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		MinSolveTimeDesktop:    1200 * time.Millisecond,
		MinSolveTimeMobile:     1200 * time.Millisecond,
		MinMovementSamples:     3,
		KeyVarianceThreshold:   100,
		MaxAxisAlignedFraction: 0.7,
	}
}

// Validator classifies answer attempts. It is stateless; all attempt data
// arrives as parameters so it is trivially substitutable in tests.
type Validator struct {
	cfg ValidatorConfig
}

// NewValidator creates a Validator with the given gates.
func NewValidator(cfg ValidatorConfig) *Validator {
	return &Validator{cfg: cfg}
}

// Evaluate runs the decision pipeline for one input event. Order is
// significant: text match is evaluated before timing, timing before
// behavior. An incomplete input short-circuits to Pending before any
// reject can be produced.
func (v *Validator) Evaluate(
	input, challenge string,
	elapsed time.Duration,
	class device.Class,
	movements []behavior.MovementSample,
	keys []behavior.KeySample,
) Outcome {
	// Step 1: text match.
	if !Matches(input, challenge) {
		if len([]rune(input)) < len([]rune(challenge)) {
			return OutcomePending
		}
		return OutcomeRetryWrongText
	}

	// Step 2: timing gate.
	minSolve := v.cfg.MinSolveTimeDesktop
	if class == device.Mobile {
		minSolve = v.cfg.MinSolveTimeMobile
	}
	if elapsed < minSolve {
		return OutcomeRetryBotlike
	}

	// Step 3: behavioral gates. Touch interaction makes pointer analysis
	// meaningless, so mobile passes on text and timing alone.
	if class == device.Mobile {
		return OutcomeVerified
	}

	if len(movements) < v.cfg.MinMovementSamples {
		return OutcomeRetryBotlike
	}

	if variance, ok := behavior.KeystrokeVariance(keys); ok && variance <= v.cfg.KeyVarianceThreshold {
		// Metronomic typing. Too few key samples to judge is acceptable,
		// not suspicious.
		return OutcomeRetryBotlike
	}

	if fraction, ok := behavior.AxisAlignedFraction(movements); ok && fraction >= v.cfg.MaxAxisAlignedFraction {
		return OutcomeRetryBotlike
	}

	return OutcomeVerified
}
