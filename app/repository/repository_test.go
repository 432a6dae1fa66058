package repository_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

const (
	insertUserQuery         = `(?s)INSERT INTO users \(id, email, canonical_email, password_hash, name, phone, student_id, email_verified, verified_at, created_at, updated_at\)\s+VALUES \(\?, \?, \?, \?, \?, \?, \?, \?, \?, \?, \?\)`
	findByCanonicalEmail    = `(?s)SELECT id, email, canonical_email, password_hash, name, phone, student_id,\s+email_verified, verified_at, created_at, updated_at\s+FROM users WHERE canonical_email = \?`
	findByIDQuery           = `(?s)SELECT id, email, canonical_email, password_hash, name, phone, student_id,\s+email_verified, verified_at, created_at, updated_at\s+FROM users WHERE id = \?`
	updatePasswordHashQuery = `UPDATE users SET password_hash = \?, updated_at = \? WHERE id = \?`
	markVerifiedQuery       = `UPDATE users SET email_verified = 1, verified_at = \?, updated_at = \? WHERE id = \?`

	insertSessionQuery = `(?s)INSERT INTO sessions \(token_hash, user_id, expires_at, created_at\)\s+VALUES \(\?, \?, \?, \?\)`
	findSessionQuery   = `(?s)SELECT token_hash, user_id, expires_at, created_at\s+FROM sessions WHERE token_hash = \?`
	deleteSessionQuery = `DELETE FROM sessions WHERE token_hash = \?`
	sweepSessionsQuery = `DELETE FROM sessions WHERE expires_at < \?`

	insertVerificationTokenQuery = `(?s)INSERT INTO email_verification_tokens \(token_hash, user_id, expires_at, created_at\)\s+VALUES \(\?, \?, \?, \?\)`
	findVerificationForUpdate    = `(?s)SELECT token_hash, user_id, expires_at, created_at\s+FROM email_verification_tokens WHERE token_hash = \? FOR UPDATE`
	deleteVerificationTokenQuery = `DELETE FROM email_verification_tokens WHERE token_hash = \?`
	sweepVerificationQuery       = `DELETE FROM email_verification_tokens WHERE expires_at < \?`

	insertResetTokenQuery = `(?s)INSERT INTO password_reset_tokens \(token_hash, user_id, expires_at, created_at\)\s+VALUES \(\?, \?, \?, \?\)`
	findUnexpiredReset    = `(?s)SELECT token_hash, user_id, expires_at, created_at\s+FROM password_reset_tokens WHERE token_hash = \? AND expires_at > \? FOR UPDATE`
	deleteResetTokenQuery = `DELETE FROM password_reset_tokens WHERE token_hash = \?`
	sweepResetTokensQuery = `DELETE FROM password_reset_tokens WHERE expires_at < \?`
)

var userColumns = []string{
	"id",
	"email",
	"canonical_email",
	"password_hash",
	"name",
	"phone",
	"student_id",
	"email_verified",
	"verified_at",
	"created_at",
	"updated_at",
}

var tokenColumns = []string{
	"token_hash",
	"user_id",
	"expires_at",
	"created_at",
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return db, mock, func() { _ = db.Close() }
}

func assertExpectations(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

var ctx = context.Background()
