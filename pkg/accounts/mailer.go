package accounts

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Mailer delivers verification codes
type Mailer interface {
	SendCode(ctx context.Context, email, code string) error
}

// LogMailer writes deliveries to the log instead of sending mail. It is the
// default in development; production wires a real transport.
type LogMailer struct {
	logger logrus.FieldLogger
}

// NewLogMailer creates a LogMailer
func NewLogMailer(logger logrus.FieldLogger) *LogMailer {
	return &LogMailer{logger: logger}
}

// SendCode logs the code at debug level
func (m *LogMailer) SendCode(_ context.Context, email, code string) error {
	m.logger.WithFields(logrus.Fields{
		"email": email,
		"code":  code,
	}).Debug("verification code issued")
	return nil
}
