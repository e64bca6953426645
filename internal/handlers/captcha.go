package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dhalloran/scrawl/internal/models"
	"github.com/dhalloran/scrawl/internal/services"
	pkghttp "github.com/dhalloran/scrawl/pkg/http"
	"github.com/go-chi/chi/v5"
)

// ChallengeServiceInterface defines the interface for challenge orchestration
type ChallengeServiceInterface interface {
	Start(userAgent string, maxTouchPoints int) (*services.ChallengeView, error)
	Challenge(id string) (*services.ChallengeView, error)
	Refresh(id string) (*services.ChallengeView, error)
	RecordEvents(id string, movements []services.MovementEvent, keys []services.KeyEvent) error
	Verify(id, answer, clientIP string) (*services.VerifyResult, error)
}

// CaptchaHandler handles challenge lifecycle HTTP requests
type CaptchaHandler struct {
	service ChallengeServiceInterface
}

// NewCaptchaHandler creates a new CaptchaHandler
func NewCaptchaHandler(service ChallengeServiceInterface) *CaptchaHandler {
	return &CaptchaHandler{service: service}
}

// Request DTOs

// StartChallengeRequest carries the client's device capability hints. The
// user agent comes from the request header, not the body.
type StartChallengeRequest struct {
	MaxTouchPoints int `json:"max_touch_points" validate:"gte=0"`
}

// MovementEventDTO is one pointer sample; T is a millisecond epoch.
type MovementEventDTO struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	T int64   `json:"t" validate:"required"`
}

// KeyEventDTO is one keypress; T is a millisecond epoch.
type KeyEventDTO struct {
	Key string `json:"key" validate:"required,max=32"`
	T   int64  `json:"t" validate:"required"`
}

// EventsRequest is a batch of behavior samples.
type EventsRequest struct {
	Movements []MovementEventDTO `json:"movements" validate:"max=200,dive"`
	Keys      []KeyEventDTO      `json:"keys" validate:"max=200,dive"`
}

// VerifyChallengeRequest carries one answer attempt.
type VerifyChallengeRequest struct {
	Answer string `json:"answer" validate:"max=64"`
}

// Start creates a new challenge session
// @Router /api/captcha/challenge [post]
func (h *CaptchaHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartChallengeRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			pkghttp.WriteBadRequest(w, "Invalid request body")
			return
		}
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	view, err := h.service.Start(r.Header.Get("User-Agent"), req.MaxTouchPoints)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, view)
}

// Get returns the session's current challenge
// @Router /api/captcha/challenge/{id} [get]
func (h *CaptchaHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Challenge(chi.URLParam(r, "id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// Refresh unconditionally regenerates the session's challenge
// @Router /api/captcha/challenge/{id}/refresh [post]
func (h *CaptchaHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Refresh(chi.URLParam(r, "id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// Events records a batch of behavior samples
// @Router /api/captcha/challenge/{id}/events [post]
func (h *CaptchaHandler) Events(w http.ResponseWriter, r *http.Request) {
	var req EventsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	movements := make([]services.MovementEvent, 0, len(req.Movements))
	for _, m := range req.Movements {
		movements = append(movements, services.MovementEvent{
			X: m.X,
			Y: m.Y,
			T: time.UnixMilli(m.T),
		})
	}
	keys := make([]services.KeyEvent, 0, len(req.Keys))
	for _, k := range req.Keys {
		keys = append(keys, services.KeyEvent{
			Key: k.Key,
			T:   time.UnixMilli(k.T),
		})
	}

	if err := h.service.RecordEvents(chi.URLParam(r, "id"), movements, keys); err != nil {
		writeSessionError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Verify evaluates an answer attempt
// @Router /api/captcha/challenge/{id}/verify [post]
func (h *CaptchaHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.service.Verify(chi.URLParam(r, "id"), req.Answer, pkghttp.ExtractClientIP(r, nil))
	if err != nil {
		writeSessionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// writeSessionError maps session lookup failures to HTTP responses
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Challenge session not found")
	case errors.Is(err, models.ErrSessionExpired):
		pkghttp.WriteError(w, http.StatusGone, "session_expired", "Challenge session has expired")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// writeJSON writes a JSON response body with the given status
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
