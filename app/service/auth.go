package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/vibast-solutions/ms-go-lostfound-auth/app/dto"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/entity"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/metrics"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/secret"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/types"
	"github.com/vibast-solutions/ms-go-lostfound-auth/config"
)

// dummyPassword is hashed at construction and compared against on unknown
// emails so that both failure paths cost one bcrypt comparison.
const dummyPassword = "lost-and-found-timing-equalizer"

type AuthService interface {
	SignIn(ctx context.Context, req *types.SignInRequest) (*dto.SignInResult, error)
	SignOut(ctx context.Context, sessionToken string) error
}

type authService struct {
	store  CredentialStore
	hasher secret.PasswordHasher
	issuer secret.TokenIssuer
	cfg    *config.Config
	options

	dummyHash string
}

func NewAuthService(
	store CredentialStore,
	hasher secret.PasswordHasher,
	issuer secret.TokenIssuer,
	cfg *config.Config,
	opts ...Option,
) (AuthService, error) {
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy password hash: %w", err)
	}

	return &authService{
		store:     store,
		hasher:    hasher,
		issuer:    issuer,
		cfg:       cfg,
		options:   defaultOptions(opts),
		dummyHash: dummyHash,
	}, nil
}

func (s *authService) SignIn(ctx context.Context, req *types.SignInRequest) (*dto.SignInResult, error) {
	user, err := s.store.FindUserByEmail(ctx, CanonicalizeEmail(req.Email))
	if err != nil {
		metrics.RecordSignIn(metrics.OutcomeError)
		return nil, err
	}

	if user == nil {
		s.hasher.Verify(req.Password, s.dummyHash)
		metrics.RecordSignIn(metrics.OutcomeInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		metrics.RecordSignIn(metrics.OutcomeInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	if !user.EmailVerified {
		metrics.RecordSignIn(metrics.OutcomeNotVerified)
		return nil, &EmailNotVerifiedError{Email: user.Email}
	}

	token, err := s.issuer.Issue()
	if err != nil {
		metrics.RecordSignIn(metrics.OutcomeError)
		return nil, err
	}

	now := s.now()
	session := &entity.Session{
		TokenHash: secret.HashToken(token),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.cfg.Session.TTL),
		CreatedAt: now,
	}
	if err = s.store.CreateSession(ctx, session); err != nil {
		metrics.RecordSignIn(metrics.OutcomeError)
		return nil, err
	}

	metrics.RecordSignIn(metrics.OutcomeSuccess)
	return &dto.SignInResult{
		User:         user,
		SessionToken: token,
		ExpiresAt:    session.ExpiresAt,
	}, nil
}

// SignOut removes the session if it exists. Unknown or empty tokens succeed.
func (s *authService) SignOut(ctx context.Context, sessionToken string) error {
	if sessionToken == "" {
		return nil
	}
	return s.store.DeleteSession(ctx, secret.HashToken(sessionToken))
}

// IsEmailNotVerified extracts the email carried by an unverified sign-in.
func IsEmailNotVerified(err error) (string, bool) {
	var notVerified *EmailNotVerifiedError
	if errors.As(err, &notVerified) {
		return notVerified.Email, true
	}
	return "", false
}
