package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-lostfound-auth/app/dto"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/entity"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/mailer"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/metrics"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/repository"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/secret"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/types"
	"github.com/vibast-solutions/ms-go-lostfound-auth/config"
)

type PasswordResetService interface {
	RequestReset(ctx context.Context, req *types.RequestPasswordResetRequest) (*dto.RequestPasswordResetResult, error)
	ConfirmReset(ctx context.Context, req *types.ConfirmPasswordResetRequest) error
}

type passwordResetService struct {
	store    CredentialStore
	hasher   secret.PasswordHasher
	issuer   secret.TokenIssuer
	mailer   Mailer
	composer EmailComposer
	cfg      *config.Config
	options
}

func NewPasswordResetService(
	store CredentialStore,
	hasher secret.PasswordHasher,
	issuer secret.TokenIssuer,
	mailer Mailer,
	composer EmailComposer,
	cfg *config.Config,
	opts ...Option,
) PasswordResetService {
	return &passwordResetService{
		store:    store,
		hasher:   hasher,
		issuer:   issuer,
		mailer:   mailer,
		composer: composer,
		cfg:      cfg,
		options:  defaultOptions(opts),
	}
}

// RequestReset returns the same result whether or not the email belongs to
// an account. Only the warning differs, and only when delivery failed.
func (s *passwordResetService) RequestReset(ctx context.Context, req *types.RequestPasswordResetRequest) (*dto.RequestPasswordResetResult, error) {
	user, err := s.store.FindUserByEmail(ctx, CanonicalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		logrus.Debug("Password reset requested for unknown email")
		return &dto.RequestPasswordResetResult{}, nil
	}

	token, err := s.issuer.Issue()
	if err != nil {
		return nil, err
	}

	now := s.now()
	err = s.store.CreateResetToken(ctx, &entity.OneTimeToken{
		TokenHash: secret.HashToken(token),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.cfg.Tokens.ResetTTL),
		CreatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	warning := deliver(ctx, s.mailer, metrics.KindReset, user.Email, func() (mailer.Email, error) {
		return s.composer.PasswordReset(user.Name, token)
	}, WarningResetEmail)

	return &dto.RequestPasswordResetResult{Warning: warning}, nil
}

func (s *passwordResetService) ConfirmReset(ctx context.Context, req *types.ConfirmPasswordResetRequest) error {
	if err := s.cfg.Password.Policy.Validate(req.NewPassword); err != nil {
		return weakPassword("new_password", err)
	}

	passwordHash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		if errors.Is(err, secret.ErrPasswordTooLong) || errors.Is(err, secret.ErrEmptyPassword) {
			return weakPassword("new_password", err)
		}
		return err
	}

	userID, err := s.store.ResetPassword(ctx, secret.HashToken(req.Token), passwordHash, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		metrics.RecordTokenConsumption(metrics.KindReset, metrics.OutcomeInvalidToken)
		return ErrInvalidOrExpiredToken
	}
	if err != nil {
		metrics.RecordTokenConsumption(metrics.KindReset, metrics.OutcomeError)
		return err
	}

	metrics.RecordTokenConsumption(metrics.KindReset, metrics.OutcomeSuccess)
	logrus.WithField("user_id", userID).Info("Password reset")
	return nil
}
