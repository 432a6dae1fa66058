package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/samber/oops"
	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-lostfound-auth/app/entity"
)

// SweepResult counts rows removed by an expiry sweep.
type SweepResult struct {
	Sessions           int64
	VerificationTokens int64
	ResetTokens        int64
}

func (r SweepResult) Total() int64 {
	return r.Sessions + r.VerificationTokens + r.ResetTokens
}

// MySQLStore is the credential store backed by MySQL. Multi-row operations
// run in a single transaction; token consumption locks the token row so
// concurrent consumers serialize on it.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func dependencyError(operation string, err error) error {
	return oops.
		In("repository").
		Code("CREDENTIAL_STORE_FAILURE").
		With("operation", operation).
		Wrap(err)
}

func (s *MySQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return dependencyError("ping", err)
	}
	return nil
}

// RegisterUser inserts the user and its first verification token together.
func (s *MySQLStore) RegisterUser(ctx context.Context, user *entity.User, token *entity.OneTimeToken) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return dependencyError("begin register", err)
	}
	defer tx.Rollback()

	if err = NewUserRepository(tx).Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return err
		}
		return dependencyError("insert user", err)
	}

	if err = NewVerificationTokenRepository(tx).Create(ctx, token); err != nil {
		return dependencyError("insert verification token", err)
	}

	if err = tx.Commit(); err != nil {
		return dependencyError("commit register", err)
	}
	return nil
}

func (s *MySQLStore) FindUserByEmail(ctx context.Context, canonicalEmail string) (*entity.User, error) {
	user, err := NewUserRepository(s.db).FindByCanonicalEmail(ctx, canonicalEmail)
	if err != nil {
		return nil, dependencyError("find user by email", err)
	}
	return user, nil
}

func (s *MySQLStore) FindUserByID(ctx context.Context, id string) (*entity.User, error) {
	user, err := NewUserRepository(s.db).FindByID(ctx, id)
	if err != nil {
		return nil, dependencyError("find user by id", err)
	}
	return user, nil
}

func (s *MySQLStore) CreateSession(ctx context.Context, session *entity.Session) error {
	if err := NewSessionRepository(s.db).Create(ctx, session); err != nil {
		return dependencyError("insert session", err)
	}
	return nil
}

func (s *MySQLStore) FindSession(ctx context.Context, tokenHash string) (*entity.Session, error) {
	session, err := NewSessionRepository(s.db).FindByTokenHash(ctx, tokenHash)
	if err != nil {
		return nil, dependencyError("find session", err)
	}
	return session, nil
}

func (s *MySQLStore) DeleteSession(ctx context.Context, tokenHash string) error {
	if _, err := NewSessionRepository(s.db).DeleteByTokenHash(ctx, tokenHash); err != nil {
		return dependencyError("delete session", err)
	}
	return nil
}

func (s *MySQLStore) CreateVerificationToken(ctx context.Context, token *entity.OneTimeToken) error {
	if err := NewVerificationTokenRepository(s.db).Create(ctx, token); err != nil {
		return dependencyError("insert verification token", err)
	}
	return nil
}

// ConsumeVerificationToken marks the owning user verified and deletes the
// token. An expired token is left in place and reported as ErrExpired.
func (s *MySQLStore) ConsumeVerificationToken(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", dependencyError("begin verify", err)
	}
	defer tx.Rollback()

	tokens := NewVerificationTokenRepository(tx)
	token, err := tokens.FindByTokenHashForUpdate(ctx, tokenHash)
	if err != nil {
		return "", dependencyError("find verification token", err)
	}
	if token == nil {
		return "", ErrNotFound
	}
	if token.IsExpiredAt(now) {
		return "", ErrExpired
	}

	deleted, err := tokens.DeleteByTokenHash(ctx, tokenHash)
	if err != nil {
		return "", dependencyError("delete verification token", err)
	}
	if deleted == 0 {
		return "", ErrNotFound
	}

	if err = NewUserRepository(tx).MarkEmailVerified(ctx, token.UserID, now); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", err
		}
		return "", dependencyError("mark email verified", err)
	}

	if err = tx.Commit(); err != nil {
		return "", dependencyError("commit verify", err)
	}
	return token.UserID, nil
}

func (s *MySQLStore) CreateResetToken(ctx context.Context, token *entity.OneTimeToken) error {
	if err := NewResetTokenRepository(s.db).Create(ctx, token); err != nil {
		return dependencyError("insert reset token", err)
	}
	return nil
}

// ResetPassword replaces the password of the user owning an unexpired reset
// token. Failing to delete the token is logged and does not undo the change,
// unless the failure aborted the transaction itself.
func (s *MySQLStore) ResetPassword(ctx context.Context, tokenHash, passwordHash string, now time.Time) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", dependencyError("begin reset", err)
	}
	defer tx.Rollback()

	tokens := NewResetTokenRepository(tx)
	token, err := tokens.FindUnexpiredForUpdate(ctx, tokenHash, now)
	if err != nil {
		return "", dependencyError("find reset token", err)
	}
	if token == nil {
		return "", ErrNotFound
	}

	if err = NewUserRepository(tx).UpdatePasswordHash(ctx, token.UserID, passwordHash, now); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", err
		}
		return "", dependencyError("update password hash", err)
	}

	if _, err = tokens.DeleteByTokenHash(ctx, tokenHash); err != nil {
		if isTransactionAborted(err) {
			return "", dependencyError("delete reset token", err)
		}
		logrus.WithError(dependencyError("delete reset token", err)).
			WithField("user_id", token.UserID).
			Warn("Failed to delete consumed reset token")
	}

	if err = tx.Commit(); err != nil {
		return "", dependencyError("commit reset", err)
	}
	return token.UserID, nil
}

func (s *MySQLStore) DeleteExpired(ctx context.Context, now time.Time) (SweepResult, error) {
	var result SweepResult
	var err error

	if result.Sessions, err = NewSessionRepository(s.db).DeleteExpired(ctx, now); err != nil {
		return result, dependencyError("sweep sessions", err)
	}
	if result.VerificationTokens, err = NewVerificationTokenRepository(s.db).DeleteExpired(ctx, now); err != nil {
		return result, dependencyError("sweep verification tokens", err)
	}
	if result.ResetTokens, err = NewResetTokenRepository(s.db).DeleteExpired(ctx, now); err != nil {
		return result, dependencyError("sweep reset tokens", err)
	}
	return result, nil
}
