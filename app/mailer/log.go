package mailer

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogMailer writes outgoing emails to the log instead of delivering them.
type LogMailer struct {
	logger logrus.FieldLogger
}

func NewLogMailer(logger logrus.FieldLogger) *LogMailer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	m.logger.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
		"body":    htmlBody,
	}).Info("Email not delivered, MAIL_DRIVER=log")
	return nil
}
