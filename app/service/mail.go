package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-lostfound-auth/app/mailer"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/metrics"
)

const (
	WarningVerificationEmail = "account created but the verification email could not be sent; request a new link"
	WarningResendEmail       = "verification email could not be sent; try again later"
	WarningResetEmail        = "password reset email could not be sent; try again later"
)

// deliver hands a composed email to the mailer and reports failure as a
// warning string. The caller's cancellation does not abort the hand-off.
func deliver(ctx context.Context, m Mailer, kind, to string, compose func() (mailer.Email, error), warning string) string {
	email, err := compose()
	if err == nil {
		err = m.Send(context.WithoutCancel(ctx), to, email.Subject, email.HTMLBody)
	}
	if err != nil {
		metrics.RecordMailFailure(kind)
		logrus.WithError(err).
			WithField("kind", kind).
			WithField("to", to).
			Warn("Failed to send email")
		return warning
	}
	return ""
}
