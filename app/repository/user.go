package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/vibast-solutions/ms-go-lostfound-auth/app/entity"
)

const userColumns = `id, email, canonical_email, password_hash, name, phone, student_id,
		       email_verified, verified_at, created_at, updated_at`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (id, email, canonical_email, password_hash, name, phone, student_id, email_verified, verified_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.CanonicalEmail,
		user.PasswordHash,
		user.Name,
		user.Phone,
		user.StudentID,
		user.EmailVerified,
		user.VerifiedAt,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *UserRepository) FindByCanonicalEmail(ctx context.Context, canonicalEmail string) (*entity.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users WHERE canonical_email = ?
	`
	return r.findOne(ctx, query, canonicalEmail)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users WHERE id = ?
	`
	return r.findOne(ctx, query, id)
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string, now time.Time) error {
	query := `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, passwordHash, now, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *UserRepository) MarkEmailVerified(ctx context.Context, id string, now time.Time) error {
	query := `UPDATE users SET email_verified = 1, verified_at = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, now, now, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.User, error) {
	row := r.db.QueryRowContext(ctx, query, args...)
	user, err := scanUser(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func scanUser(scan rowScanner) (*entity.User, error) {
	user := &entity.User{}
	if err := scan(
		&user.ID,
		&user.Email,
		&user.CanonicalEmail,
		&user.PasswordHash,
		&user.Name,
		&user.Phone,
		&user.StudentID,
		&user.EmailVerified,
		&user.VerifiedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return user, nil
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
