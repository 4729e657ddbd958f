package service

import (
	"context"

	"go.uber.org/zap"
)

// Mailer delivers verification codes. Real delivery is out of scope; the
// default implementation only logs.
type Mailer interface {
	SendVerificationCode(ctx context.Context, email, code string) error
}

// LogMailer writes outgoing codes to the application log.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer constructs the log-only mailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

// SendVerificationCode logs the code instead of sending it.
func (m *LogMailer) SendVerificationCode(_ context.Context, email, code string) error {
	m.logger.Info("verification code issued", zap.String("email", email), zap.String("code", code))
	return nil
}
