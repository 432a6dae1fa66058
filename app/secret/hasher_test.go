package secret_test

import (
	"strings"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vibast-solutions/ms-go-lostfound-auth/app/secret"
)

func clampPassword(raw []byte) string {
	if len(raw) > 72 {
		raw = raw[:72]
	}
	if len(raw) == 0 {
		return "x"
	}
	return string(raw)
}

func TestBcryptHasher_RoundTripProperty(t *testing.T) {
	h := secret.NewBcryptHasher(bcrypt.MinCost)

	property := func(rawPassword, rawOther []byte) bool {
		password := clampPassword(rawPassword)
		other := clampPassword(rawOther)

		hashed, err := h.Hash(password)
		if err != nil {
			return false
		}
		if !h.Verify(password, hashed) {
			return false
		}
		if other != password && h.Verify(other, hashed) {
			return false
		}
		return true
	}

	require.NoError(t, quick.Check(property, &quick.Config{MaxCount: 25}))
}

func TestBcryptHasher_SaltsEveryHash(t *testing.T) {
	h := secret.NewBcryptHasher(bcrypt.MinCost)

	first, err := h.Hash("longpassword1")
	require.NoError(t, err)
	second, err := h.Hash("longpassword1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, h.Verify("longpassword1", first))
	assert.True(t, h.Verify("longpassword1", second))
}

func TestBcryptHasher_RejectsEmptyAndOversized(t *testing.T) {
	h := secret.NewBcryptHasher(bcrypt.MinCost)

	_, err := h.Hash("")
	assert.ErrorIs(t, err, secret.ErrEmptyPassword)

	_, err = h.Hash(strings.Repeat("a", 73))
	assert.ErrorIs(t, err, secret.ErrPasswordTooLong)
}

func TestBcryptHasher_VerifyMalformedHash(t *testing.T) {
	h := secret.NewBcryptHasher(bcrypt.MinCost)

	assert.False(t, h.Verify("password", ""))
	assert.False(t, h.Verify("password", "not-a-hash"))
	assert.False(t, h.Verify("password", "$2a$04$short"))
}

func TestNewBcryptHasher_InvalidCostFallsBackToDefault(t *testing.T) {
	h := secret.NewBcryptHasher(99)

	hashed, err := h.Hash("longpassword1")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hashed))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
