package logger

import (
	"context"
	"log/slog"
	"time"
)

// VerdictEvent records the outcome of one challenge verification attempt.
type VerdictEvent struct {
	SessionID   string
	Outcome     string
	DeviceClass string
	Movements   int
	Keys        int
	IPAddress   string
}

// VerdictLogger provides an audit trail of challenge verdicts, useful for
// tuning the behavioral thresholds against real traffic.
type VerdictLogger struct {
	logger *slog.Logger
}

// NewVerdictLogger creates a new verdict logger.
func NewVerdictLogger(logger *slog.Logger) *VerdictLogger {
	return &VerdictLogger{
		logger: logger,
	}
}

// LogVerdict logs a single verification verdict.
func (vl *VerdictLogger) LogVerdict(event VerdictEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "captcha_verdict"),
		slog.String("session_id", event.SessionID),
		slog.String("outcome", event.Outcome),
		slog.String("device_class", event.DeviceClass),
		slog.Int("movement_samples", event.Movements),
		slog.Int("key_samples", event.Keys),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}

	level := slog.LevelInfo
	if event.Outcome == "retry_botlike" {
		level = slog.LevelWarn
	}

	vl.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}
