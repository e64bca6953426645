package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dhalloran/scrawl/internal/models"
	pkghttp "github.com/dhalloran/scrawl/pkg/http"
)

// ContactServiceInterface defines the interface for contact submissions
type ContactServiceInterface interface {
	Submit(ctx context.Context, msg models.ContactMessage, verificationToken string) error
}

// ContactHandler handles contact form submissions
type ContactHandler struct {
	service ContactServiceInterface
}

// NewContactHandler creates a new ContactHandler
func NewContactHandler(service ContactServiceInterface) *ContactHandler {
	return &ContactHandler{service: service}
}

// ContactRequest represents the request body for a contact submission
type ContactRequest struct {
	Name         string `json:"name" validate:"required,min=1,max=100"`
	Email        string `json:"email" validate:"required,email"`
	Subject      string `json:"subject" validate:"max=200"`
	Message      string `json:"message" validate:"required,min=1,max=5000"`
	CaptchaToken string `json:"captcha_token" validate:"required"`
}

// Submit handles a contact form submission. Submission is refused with a
// user-visible message when the captcha verification token is missing,
// invalid, expired, or already used.
// @Router /api/contact [post]
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	msg := models.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Body:    req.Message,
	}

	if err := h.service.Submit(r.Context(), msg, req.CaptchaToken); err != nil {
		switch {
		case errors.Is(err, models.ErrTokenInvalid),
			errors.Is(err, models.ErrTokenExpired),
			errors.Is(err, models.ErrSessionNotReady),
			errors.Is(err, models.ErrSessionSpent),
			errors.Is(err, models.ErrNotFound),
			errors.Is(err, models.ErrSessionExpired):
			pkghttp.WriteForbidden(w, "Please complete the captcha challenge before submitting.")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
