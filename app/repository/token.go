package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/vibast-solutions/ms-go-lostfound-auth/app/entity"
)

const (
	verificationTokensTable = "email_verification_tokens"
	resetTokensTable        = "password_reset_tokens"
)

// OneTimeTokenRepository persists single-use tokens. The same queries serve
// the verification and reset tables.
type OneTimeTokenRepository struct {
	db    DBTX
	table string
}

func NewVerificationTokenRepository(db DBTX) *OneTimeTokenRepository {
	return &OneTimeTokenRepository{db: db, table: verificationTokensTable}
}

func NewResetTokenRepository(db DBTX) *OneTimeTokenRepository {
	return &OneTimeTokenRepository{db: db, table: resetTokensTable}
}

func (r *OneTimeTokenRepository) Create(ctx context.Context, token *entity.OneTimeToken) error {
	query := `
		INSERT INTO ` + r.table + ` (token_hash, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		token.TokenHash,
		token.UserID,
		token.ExpiresAt,
		token.CreatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// FindByTokenHashForUpdate locks the row until the surrounding transaction ends.
func (r *OneTimeTokenRepository) FindByTokenHashForUpdate(ctx context.Context, tokenHash string) (*entity.OneTimeToken, error) {
	query := `
		SELECT token_hash, user_id, expires_at, created_at
		FROM ` + r.table + ` WHERE token_hash = ? FOR UPDATE
	`
	return r.findOne(ctx, query, tokenHash)
}

// FindUnexpiredForUpdate filters by hash and expiry in a single statement.
func (r *OneTimeTokenRepository) FindUnexpiredForUpdate(ctx context.Context, tokenHash string, now time.Time) (*entity.OneTimeToken, error) {
	query := `
		SELECT token_hash, user_id, expires_at, created_at
		FROM ` + r.table + ` WHERE token_hash = ? AND expires_at > ? FOR UPDATE
	`
	return r.findOne(ctx, query, tokenHash, now)
}

func (r *OneTimeTokenRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) (int64, error) {
	query := `DELETE FROM ` + r.table + ` WHERE token_hash = ?`
	result, err := r.db.ExecContext(ctx, query, tokenHash)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *OneTimeTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM ` + r.table + ` WHERE expires_at < ?`
	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *OneTimeTokenRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.OneTimeToken, error) {
	row := r.db.QueryRowContext(ctx, query, args...)
	t, err := scanOneTimeToken(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func scanOneTimeToken(scan rowScanner) (*entity.OneTimeToken, error) {
	t := &entity.OneTimeToken{}
	if err := scan(&t.TokenHash, &t.UserID, &t.ExpiresAt, &t.CreatedAt); err != nil {
		return nil, err
	}
	return t, nil
}
