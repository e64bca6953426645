package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/dhalloran/scrawl/internal/models"
	pkglogger "github.com/dhalloran/scrawl/pkg/logger"
)

// EmailService delivers contact form submissions. The captcha core never
// touches delivery; it only gates whether a submission reaches this
// collaborator.
type EmailService interface {
	SendContactMessage(ctx context.Context, msg models.ContactMessage) error
}

// AWSSESEmailService sends contact notifications using AWS SES.
type AWSSESEmailService struct {
	sesClient   *ses.Client
	fromAddress string
	toAddress   string
	logger      *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service.
func NewAWSSESEmailService(region, fromAddress, toAddress string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailService{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		toAddress:   toAddress,
		logger:      logger,
	}, nil
}

// SendContactMessage forwards a verified contact submission to the site
// owner's inbox.
func (s *AWSSESEmailService) SendContactMessage(ctx context.Context, msg models.ContactMessage) error {
	subject := msg.Subject
	if subject == "" {
		subject = "New contact form message"
	}

	textBody := fmt.Sprintf(`New contact form message

From: %s <%s>

%s

This message passed captcha verification before delivery.
`, msg.Name, msg.Email, msg.Body)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{s.toAddress},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
		ReplyToAddresses: []string{msg.Email},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send contact message via SES",
			slog.String("from", pkglogger.SanitizedEmail(msg.Email)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("contact message sent",
		slog.String("from", pkglogger.SanitizedEmail(msg.Email)),
		slog.String("message_id", *result.MessageId))

	return nil
}

// LogEmailService is a development stand-in that logs instead of sending.
type LogEmailService struct {
	logger *slog.Logger
}

// NewLogEmailService creates a log-only email service.
func NewLogEmailService(logger *slog.Logger) *LogEmailService {
	return &LogEmailService{logger: logger}
}

// SendContactMessage logs the submission and succeeds.
func (s *LogEmailService) SendContactMessage(_ context.Context, msg models.ContactMessage) error {
	s.logger.Info("contact message (log-only delivery)",
		slog.String("from", pkglogger.SanitizedEmail(msg.Email)),
		slog.String("name", msg.Name),
		slog.Int("body_len", len(msg.Body)))
	return nil
}
