package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vibast-solutions/ms-go-lostfound-auth/app/mailer"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/repository/memory"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/secret"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/service"
	"github.com/vibast-solutions/ms-go-lostfound-auth/config"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingIssuer struct {
	mu     sync.Mutex
	inner  secret.TokenIssuer
	issued []string
}

func (i *recordingIssuer) Issue() (string, error) {
	token, err := i.inner.Issue()
	if err != nil {
		return "", err
	}
	i.mu.Lock()
	i.issued = append(i.issued, token)
	i.mu.Unlock()
	return token, nil
}

func (i *recordingIssuer) Count() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.issued)
}

func (i *recordingIssuer) Last() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.issued) == 0 {
		return ""
	}
	return i.issued[len(i.issued)-1]
}

type countingHasher struct {
	secret.PasswordHasher
	hashes   atomic.Int32
	verifies atomic.Int32
}

func (h *countingHasher) Hash(password string) (string, error) {
	h.hashes.Add(1)
	return h.PasswordHasher.Hash(password)
}

func (h *countingHasher) Verify(password, hash string) bool {
	h.verifies.Add(1)
	return h.PasswordHasher.Verify(password, hash)
}

type sentEmail struct {
	To      string
	Subject string
	Body    string
}

type fakeMailer struct {
	mu   sync.Mutex
	fail bool
	sent []sentEmail
}

func (m *fakeMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp: connection refused")
	}
	m.sent = append(m.sent, sentEmail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

func (m *fakeMailer) SetFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

func (m *fakeMailer) Sent() []sentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentEmail(nil), m.sent...)
}

type fixture struct {
	store    *memory.Store
	hasher   *countingHasher
	issuer   *recordingIssuer
	mailer   *fakeMailer
	clock    *fakeClock
	cfg      *config.Config
	auth     service.AuthService
	sessions service.SessionAuthenticator
	register service.RegistrationService
	verify   service.VerificationService
	reset    service.PasswordResetService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := &config.Config{
		App:     config.AppConfig{Env: config.EnvDevelopment, BaseURL: "http://localhost:3000"},
		Session: config.SessionConfig{TTL: 7 * 24 * time.Hour, CookieName: "session_token"},
		Tokens:  config.TokenConfig{VerificationTTL: time.Hour, ResetTTL: time.Hour},
		Password: config.PasswordConfig{
			Policy:     config.PasswordPolicy{MinLength: 8, MinEntropyBits: 40},
			BcryptCost: bcrypt.MinCost,
		},
	}

	f := &fixture{
		store:  memory.NewStore(),
		hasher: &countingHasher{PasswordHasher: secret.NewBcryptHasher(bcrypt.MinCost)},
		issuer: &recordingIssuer{inner: secret.NewRandomTokenIssuer()},
		mailer: &fakeMailer{},
		clock:  &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		cfg:    cfg,
	}

	composer := mailer.NewComposer(cfg.App.BaseURL, cfg.Tokens.VerificationTTL, cfg.Tokens.ResetTTL)
	clock := service.WithClock(f.clock.Now)

	auth, err := service.NewAuthService(f.store, f.hasher, f.issuer, cfg, clock)
	require.NoError(t, err)
	f.auth = auth
	f.sessions = service.NewSessionAuthenticator(f.store, clock)
	f.register = service.NewRegistrationService(f.store, f.hasher, f.issuer, f.mailer, composer, cfg, clock)
	f.verify = service.NewVerificationService(f.store, f.issuer, f.mailer, composer, cfg, clock)
	f.reset = service.NewPasswordResetService(f.store, f.hasher, f.issuer, f.mailer, composer, cfg, clock)
	return f
}
