package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-lostfound-auth/app/entity"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/secret"
)

// SessionAuthenticator maps a session token to the signed-in user. A nil user
// means anonymous; resolution never fails.
type SessionAuthenticator interface {
	Resolve(ctx context.Context, sessionToken string) *entity.User
}

type sessionAuthenticator struct {
	store CredentialStore
	options
}

func NewSessionAuthenticator(store CredentialStore, opts ...Option) SessionAuthenticator {
	return &sessionAuthenticator{
		store:   store,
		options: defaultOptions(opts),
	}
}

func (a *sessionAuthenticator) Resolve(ctx context.Context, sessionToken string) *entity.User {
	if sessionToken == "" {
		return nil
	}

	session, err := a.store.FindSession(ctx, secret.HashToken(sessionToken))
	if err != nil {
		logrus.WithError(err).Warn("Session lookup failed, treating request as anonymous")
		return nil
	}
	if session == nil || session.IsExpiredAt(a.now()) {
		return nil
	}

	user, err := a.store.FindUserByID(ctx, session.UserID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", session.UserID).Warn("Session user lookup failed, treating request as anonymous")
		return nil
	}
	return user
}
