// Package memory provides an in-process credential store with the same
// contract as the MySQL store. It is used by tests and local development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vibast-solutions/ms-go-lostfound-auth/app/entity"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/repository"
)

type Store struct {
	mu                 sync.RWMutex
	users              map[string]*entity.User
	usersByEmail       map[string]string
	sessions           map[string]*entity.Session
	verificationTokens map[string]*entity.OneTimeToken
	resetTokens        map[string]*entity.OneTimeToken
}

func NewStore() *Store {
	return &Store{
		users:              make(map[string]*entity.User),
		usersByEmail:       make(map[string]string),
		sessions:           make(map[string]*entity.Session),
		verificationTokens: make(map[string]*entity.OneTimeToken),
		resetTokens:        make(map[string]*entity.OneTimeToken),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) RegisterUser(_ context.Context, user *entity.User, token *entity.OneTimeToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.usersByEmail[user.CanonicalEmail]; taken {
		return repository.ErrDuplicate
	}
	if _, taken := s.verificationTokens[token.TokenHash]; taken {
		return repository.ErrDuplicate
	}

	u := *user
	s.users[u.ID] = &u
	s.usersByEmail[u.CanonicalEmail] = u.ID

	t := *token
	s.verificationTokens[t.TokenHash] = &t
	return nil
}

func (s *Store) FindUserByEmail(_ context.Context, canonicalEmail string) (*entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[canonicalEmail]
	if !ok {
		return nil, nil
	}
	u := *s.users[id]
	return &u, nil
}

func (s *Store) FindUserByID(_ context.Context, id string) (*entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	u := *user
	return &u, nil
}

func (s *Store) CreateSession(_ context.Context, session *entity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.sessions[session.TokenHash]; taken {
		return repository.ErrDuplicate
	}
	sess := *session
	s.sessions[sess.TokenHash] = &sess
	return nil
}

func (s *Store) FindSession(_ context.Context, tokenHash string) (*entity.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[tokenHash]
	if !ok {
		return nil, nil
	}
	sess := *session
	return &sess, nil
}

func (s *Store) DeleteSession(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, tokenHash)
	return nil
}

func (s *Store) CreateVerificationToken(_ context.Context, token *entity.OneTimeToken) error {
	return s.insertToken(s.verificationTokens, token)
}

func (s *Store) ConsumeVerificationToken(_ context.Context, tokenHash string, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.verificationTokens[tokenHash]
	if !ok {
		return "", repository.ErrNotFound
	}
	if token.IsExpiredAt(now) {
		return "", repository.ErrExpired
	}

	user, ok := s.users[token.UserID]
	if !ok {
		return "", repository.ErrNotFound
	}

	delete(s.verificationTokens, tokenHash)
	user.EmailVerified = true
	user.VerifiedAt.Time = now
	user.VerifiedAt.Valid = true
	user.UpdatedAt = now
	return user.ID, nil
}

func (s *Store) CreateResetToken(_ context.Context, token *entity.OneTimeToken) error {
	return s.insertToken(s.resetTokens, token)
}

func (s *Store) ResetPassword(_ context.Context, tokenHash, passwordHash string, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.resetTokens[tokenHash]
	if !ok || !token.ExpiresAt.After(now) {
		return "", repository.ErrNotFound
	}

	user, ok := s.users[token.UserID]
	if !ok {
		return "", repository.ErrNotFound
	}

	user.PasswordHash = passwordHash
	user.UpdatedAt = now
	delete(s.resetTokens, tokenHash)
	return user.ID, nil
}

func (s *Store) DeleteExpired(_ context.Context, now time.Time) (repository.SweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result repository.SweepResult
	for hash, session := range s.sessions {
		if session.ExpiresAt.Before(now) {
			delete(s.sessions, hash)
			result.Sessions++
		}
	}
	result.VerificationTokens = sweepTokens(s.verificationTokens, now)
	result.ResetTokens = sweepTokens(s.resetTokens, now)
	return result, nil
}

func (s *Store) insertToken(into map[string]*entity.OneTimeToken, token *entity.OneTimeToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[token.UserID]; !ok {
		return repository.ErrNotFound
	}
	if _, taken := into[token.TokenHash]; taken {
		return repository.ErrDuplicate
	}
	t := *token
	into[t.TokenHash] = &t
	return nil
}

func sweepTokens(tokens map[string]*entity.OneTimeToken, now time.Time) int64 {
	var removed int64
	for hash, token := range tokens {
		if token.ExpiresAt.Before(now) {
			delete(tokens, hash)
			removed++
		}
	}
	return removed
}
