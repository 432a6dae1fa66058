// Package secret holds the password hashing and opaque token primitives used by
// the credential services.
package secret

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmptyPassword   = errors.New("password cannot be empty")
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
)

// PasswordHasher hashes and verifies account passwords.
type PasswordHasher interface {
	// Hash returns a salted one-way hash. Two calls on the same input produce
	// different outputs.
	Hash(password string) (string, error)

	// Verify reports whether password matches hash. Malformed hashes simply
	// do not match.
	Verify(password, hash string) bool
}

// BcryptHasher implements PasswordHasher with bcrypt. The salt and cost are
// embedded in the encoded hash.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if len(password) > 72 {
		return "", ErrPasswordTooLong
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify uses bcrypt's constant-time comparison.
func (h *BcryptHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
