package entity

import "time"

// OneTimeToken is a single-use secret bound to a user. Email verification and
// password reset tokens share this shape and live in separate tables.
type OneTimeToken struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (t *OneTimeToken) IsExpiredAt(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}
