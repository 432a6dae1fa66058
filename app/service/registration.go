package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
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

type RegistrationService interface {
	Register(ctx context.Context, req *types.SignUpRequest) (*dto.RegisterResult, error)
}

type registrationService struct {
	store    CredentialStore
	hasher   secret.PasswordHasher
	issuer   secret.TokenIssuer
	mailer   Mailer
	composer EmailComposer
	cfg      *config.Config
	options
}

func NewRegistrationService(
	store CredentialStore,
	hasher secret.PasswordHasher,
	issuer secret.TokenIssuer,
	mailer Mailer,
	composer EmailComposer,
	cfg *config.Config,
	opts ...Option,
) RegistrationService {
	return &registrationService{
		store:    store,
		hasher:   hasher,
		issuer:   issuer,
		mailer:   mailer,
		composer: composer,
		cfg:      cfg,
		options:  defaultOptions(opts),
	}
}

// Register creates an unverified account together with its first
// verification token, then emails the token. A mail failure leaves the
// account in place and is reported through the result warning.
func (s *registrationService) Register(ctx context.Context, req *types.SignUpRequest) (*dto.RegisterResult, error) {
	email := strings.TrimSpace(req.Email)
	canonicalEmail := CanonicalizeEmail(email)

	if err := s.cfg.Password.Policy.Validate(req.Password); err != nil {
		metrics.RecordRegistration(metrics.OutcomeError)
		return nil, weakPassword("password", err)
	}

	existing, err := s.store.FindUserByEmail(ctx, canonicalEmail)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		metrics.RecordRegistration(metrics.OutcomeEmailTaken)
		return nil, ErrEmailTaken
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, secret.ErrPasswordTooLong) || errors.Is(err, secret.ErrEmptyPassword) {
			return nil, weakPassword("password", err)
		}
		return nil, err
	}

	token, err := s.issuer.Issue()
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &entity.User{
		ID:             uuid.NewString(),
		Email:          email,
		CanonicalEmail: canonicalEmail,
		PasswordHash:   passwordHash,
		Name:           strings.TrimSpace(req.Name),
		Phone:          optionalString(req.Phone),
		StudentID:      optionalString(req.StudentID),
		EmailVerified:  false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	verification := &entity.OneTimeToken{
		TokenHash: secret.HashToken(token),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.cfg.Tokens.VerificationTTL),
		CreatedAt: now,
	}

	if err = s.store.RegisterUser(ctx, user, verification); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			metrics.RecordRegistration(metrics.OutcomeEmailTaken)
			return nil, ErrEmailTaken
		}
		metrics.RecordRegistration(metrics.OutcomeError)
		return nil, err
	}

	metrics.RecordRegistration(metrics.OutcomeSuccess)
	logrus.WithField("user_id", user.ID).Info("User registered")

	warning := deliver(ctx, s.mailer, metrics.KindVerification, user.Email, func() (mailer.Email, error) {
		return s.composer.Verification(user.Name, token)
	}, WarningVerificationEmail)

	return &dto.RegisterResult{
		User:    user,
		Warning: warning,
	}, nil
}

func optionalString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	return sql.NullString{String: value, Valid: value != ""}
}
