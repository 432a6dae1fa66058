package secret

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// TokenBytes is the amount of randomness in every issued token (256 bits).
const TokenBytes = 32

// TokenIssuer produces opaque bearer tokens for sessions, email verification
// and password reset. Uniqueness per namespace is enforced by the store.
type TokenIssuer interface {
	Issue() (string, error)
}

type RandomTokenIssuer struct{}

func NewRandomTokenIssuer() *RandomTokenIssuer {
	return &RandomTokenIssuer{}
}

// Issue returns a URL-safe base64 encoding of TokenBytes random bytes.
func (i *RandomTokenIssuer) Issue() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken returns the hex SHA-256 of a token. Only this digest is persisted;
// the plaintext is handed to the client.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
