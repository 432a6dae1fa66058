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

type VerificationService interface {
	Verify(ctx context.Context, req *types.VerifyEmailRequest) error
	ResendVerification(ctx context.Context, req *types.ResendVerificationRequest) (*dto.ResendVerificationResult, error)
}

type verificationService struct {
	store    CredentialStore
	issuer   secret.TokenIssuer
	mailer   Mailer
	composer EmailComposer
	cfg      *config.Config
	options
}

func NewVerificationService(
	store CredentialStore,
	issuer secret.TokenIssuer,
	mailer Mailer,
	composer EmailComposer,
	cfg *config.Config,
	opts ...Option,
) VerificationService {
	return &verificationService{
		store:    store,
		issuer:   issuer,
		mailer:   mailer,
		composer: composer,
		cfg:      cfg,
		options:  defaultOptions(opts),
	}
}

// Verify redeems a verification token. An expired token stays in the store
// and keeps reporting ErrTokenExpired until it is swept.
func (s *verificationService) Verify(ctx context.Context, req *types.VerifyEmailRequest) error {
	userID, err := s.store.ConsumeVerificationToken(ctx, secret.HashToken(req.Token), s.now())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		metrics.RecordTokenConsumption(metrics.KindVerification, metrics.OutcomeInvalidToken)
		return ErrInvalidToken
	case errors.Is(err, repository.ErrExpired):
		metrics.RecordTokenConsumption(metrics.KindVerification, metrics.OutcomeExpired)
		return ErrTokenExpired
	case err != nil:
		metrics.RecordTokenConsumption(metrics.KindVerification, metrics.OutcomeError)
		return err
	}

	metrics.RecordTokenConsumption(metrics.KindVerification, metrics.OutcomeSuccess)
	logrus.WithField("user_id", userID).Info("Email verified")
	return nil
}

// ResendVerification issues a fresh verification token. Earlier tokens stay
// valid until they expire. Unknown emails get the same empty result as a
// successful resend.
func (s *verificationService) ResendVerification(ctx context.Context, req *types.ResendVerificationRequest) (*dto.ResendVerificationResult, error) {
	user, err := s.store.FindUserByEmail(ctx, CanonicalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return &dto.ResendVerificationResult{}, nil
	}
	if user.EmailVerified {
		return &dto.ResendVerificationResult{AlreadyVerified: true}, nil
	}

	token, err := s.issuer.Issue()
	if err != nil {
		return nil, err
	}

	now := s.now()
	err = s.store.CreateVerificationToken(ctx, &entity.OneTimeToken{
		TokenHash: secret.HashToken(token),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.cfg.Tokens.VerificationTTL),
		CreatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	warning := deliver(ctx, s.mailer, metrics.KindVerification, user.Email, func() (mailer.Email, error) {
		return s.composer.ResendVerification(user.Name, token)
	}, WarningResendEmail)

	return &dto.ResendVerificationResult{Warning: warning}, nil
}
