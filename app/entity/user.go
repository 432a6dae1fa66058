package entity

import (
	"database/sql"
	"time"
)

type User struct {
	ID             string
	Email          string
	CanonicalEmail string
	PasswordHash   string
	Name           string
	Phone          sql.NullString
	StudentID      sql.NullString
	EmailVerified  bool
	VerifiedAt     sql.NullTime
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Session struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpiredAt reports whether the session is no longer valid at t.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return s.ExpiresAt.Before(t)
}
