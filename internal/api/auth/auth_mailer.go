package auth

import (
	"context"
	"log/slog"
)

// Mailer delivers one-time passcodes to users. The production sender is
// wired in at deployment; LogMailer serves development and tests.
type Mailer interface {
	SendOTP(ctx context.Context, email, code string, purpose OTPPurpose) error
}

type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendOTP(ctx context.Context, email, code string, purpose OTPPurpose) error {
	m.logger.InfoContext(ctx, "OTP issued",
		slog.String("email", email),
		slog.String("purpose", string(purpose)),
		slog.String("code", code),
	)
	return nil
}
