package service

import (
	"context"
	"time"

	"github.com/vibast-solutions/ms-go-lostfound-auth/app/entity"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/mailer"
)

// CredentialStore persists users, sessions and one-time tokens. Token hashes,
// never plaintext tokens, are passed to it. Lookups return (nil, nil) when the
// row does not exist.
type CredentialStore interface {
	RegisterUser(ctx context.Context, user *entity.User, token *entity.OneTimeToken) error
	FindUserByEmail(ctx context.Context, canonicalEmail string) (*entity.User, error)
	FindUserByID(ctx context.Context, id string) (*entity.User, error)

	CreateSession(ctx context.Context, session *entity.Session) error
	FindSession(ctx context.Context, tokenHash string) (*entity.Session, error)
	DeleteSession(ctx context.Context, tokenHash string) error

	CreateVerificationToken(ctx context.Context, token *entity.OneTimeToken) error
	ConsumeVerificationToken(ctx context.Context, tokenHash string, now time.Time) (string, error)

	CreateResetToken(ctx context.Context, token *entity.OneTimeToken) error
	ResetPassword(ctx context.Context, tokenHash, passwordHash string, now time.Time) (string, error)
}

type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type EmailComposer interface {
	Verification(name, token string) (mailer.Email, error)
	ResendVerification(name, token string) (mailer.Email, error)
	PasswordReset(name, token string) (mailer.Email, error)
}

type Option func(*options)

type options struct {
	now func() time.Time
}

func defaultOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock replaces time.Now, mainly for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
