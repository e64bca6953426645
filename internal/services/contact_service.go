package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dhalloran/scrawl/internal/auth"
	"github.com/dhalloran/scrawl/internal/models"
	pkglogger "github.com/dhalloran/scrawl/pkg/logger"
)

// CaptchaGate is the slice of the challenge orchestrator the contact flow
// needs: redeem a verification token exactly once.
type CaptchaGate interface {
	Consume(token string) error
}

// ContactService accepts contact form submissions, enforcing the captcha
// verification gate before handing off to the email collaborator.
type ContactService struct {
	gate   CaptchaGate
	email  EmailService
	timing *auth.TimingDelay
	logger *slog.Logger
}

// NewContactService creates a ContactService. The timing delay is applied
// on refusals so the response time does not reveal why a token was
// rejected.
func NewContactService(gate CaptchaGate, email EmailService, timing *auth.TimingDelay, logger *slog.Logger) *ContactService {
	return &ContactService{
		gate:   gate,
		email:  email,
		timing: timing,
		logger: logger,
	}
}

// Submit refuses the submission unless the verification token is valid and
// unspent, then delivers the message. Token errors surface unchanged so the
// handler can map them to user-visible refusals.
func (s *ContactService) Submit(ctx context.Context, msg models.ContactMessage, verificationToken string) error {
	if err := s.gate.Consume(verificationToken); err != nil {
		s.timing.Wait(false)
		s.logger.Warn("contact submission refused",
			slog.String("from", pkglogger.SanitizedEmail(msg.Email)),
			slog.Any("error", err))
		return err
	}

	if err := s.email.SendContactMessage(ctx, msg); err != nil {
		return fmt.Errorf("failed to deliver contact message: %w", err)
	}

	s.logger.Info("contact submission delivered",
		slog.String("from", pkglogger.SanitizedEmail(msg.Email)))

	return nil
}
