package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibast-solutions/ms-go-lostfound-auth/app/secret"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/service"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/types"
)

func verifiedAlice(t *testing.T, f *fixture) {
	t.Helper()

	token := registerAlice(t, f)
	require.NoError(t, f.verify.Verify(context.Background(), &types.VerifyEmailRequest{Token: token}))
}

func TestSignInScenario(t *testing.T) {
	f := newFixture(t)
	verifiedAlice(t, f)

	result, err := f.auth.SignIn(context.Background(), &types.SignInRequest{Email: "alice@example.com", Password: "longpassword1"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.SessionToken)
	assert.Equal(t, f.clock.Now().Add(7*24*time.Hour), result.ExpiresAt)
	assert.Equal(t, "Alice", result.User.Name)
	assert.True(t, result.User.EmailVerified)

	user := f.sessions.Resolve(context.Background(), result.SessionToken)
	require.NotNil(t, user)
	assert.Equal(t, result.User.ID, user.ID)
}

func TestSignInIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	verifiedAlice(t, f)

	_, err := f.auth.SignIn(context.Background(), &types.SignInRequest{Email: "  ALICE@example.COM ", Password: "longpassword1"})
	assert.NoError(t, err)
}

func TestSignInBeforeVerification(t *testing.T) {
	f := newFixture(t)
	registerAlice(t, f)
	issued := f.issuer.Count()

	_, err := f.auth.SignIn(context.Background(), &types.SignInRequest{Email: "alice@example.com", Password: "longpassword1"})
	require.ErrorIs(t, err, service.ErrEmailNotVerified)

	email, ok := service.IsEmailNotVerified(err)
	assert.True(t, ok)
	assert.Equal(t, "alice@example.com", email)
	assert.Equal(t, issued, f.issuer.Count(), "no session token may be issued")
}

func TestSignInFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	verifiedAlice(t, f)
	ctx := context.Background()

	_, wrongPassword := f.auth.SignIn(ctx, &types.SignInRequest{Email: "alice@example.com", Password: "not-the-password"})
	_, unknownEmail := f.auth.SignIn(ctx, &types.SignInRequest{Email: "nobody@example.com", Password: "longpassword1"})

	require.Error(t, wrongPassword)
	require.Error(t, unknownEmail)
	assert.Equal(t, wrongPassword, unknownEmail)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
	assert.ErrorIs(t, unknownEmail, service.ErrInvalidCredentials)
}

func TestSignInUnknownEmailStillComparesAHash(t *testing.T) {
	f := newFixture(t)

	hashes := f.hasher.hashes.Load()
	for i := int32(1); i <= 3; i++ {
		before := f.hasher.verifies.Load()
		_, err := f.auth.SignIn(context.Background(), &types.SignInRequest{Email: "nobody@example.com", Password: "whatever1"})
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
		assert.Equal(t, before+1, f.hasher.verifies.Load())
	}
	assert.Equal(t, hashes, f.hasher.hashes.Load(), "unknown-email sign-in must not hash")
}

type failingHasher struct {
	secret.PasswordHasher
}

func (failingHasher) Hash(string) (string, error) {
	return "", errors.New("entropy source unavailable")
}

func TestNewAuthServiceFailsWithoutDummyHash(t *testing.T) {
	f := newFixture(t)

	auth, err := service.NewAuthService(f.store, failingHasher{f.hasher}, f.issuer, f.cfg)
	require.Error(t, err)
	assert.Nil(t, auth)
}

func TestSignInWrongPasswordForUnverifiedUser(t *testing.T) {
	f := newFixture(t)
	registerAlice(t, f)

	_, err := f.auth.SignIn(context.Background(), &types.SignInRequest{Email: "alice@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	assert.NotErrorIs(t, err, service.ErrEmailNotVerified)
}

func TestSignOut(t *testing.T) {
	f := newFixture(t)
	verifiedAlice(t, f)
	ctx := context.Background()

	result, err := f.auth.SignIn(ctx, &types.SignInRequest{Email: "alice@example.com", Password: "longpassword1"})
	require.NoError(t, err)

	require.NoError(t, f.auth.SignOut(ctx, result.SessionToken))
	assert.Nil(t, f.sessions.Resolve(ctx, result.SessionToken))

	assert.NoError(t, f.auth.SignOut(ctx, result.SessionToken))
	assert.NoError(t, f.auth.SignOut(ctx, "never-issued"))
	assert.NoError(t, f.auth.SignOut(ctx, ""))
}

func TestSignOutLeavesOtherSessions(t *testing.T) {
	f := newFixture(t)
	verifiedAlice(t, f)
	ctx := context.Background()

	first, err := f.auth.SignIn(ctx, &types.SignInRequest{Email: "alice@example.com", Password: "longpassword1"})
	require.NoError(t, err)
	second, err := f.auth.SignIn(ctx, &types.SignInRequest{Email: "alice@example.com", Password: "longpassword1"})
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionToken, second.SessionToken)

	require.NoError(t, f.auth.SignOut(ctx, first.SessionToken))
	assert.NotNil(t, f.sessions.Resolve(ctx, second.SessionToken))
}
