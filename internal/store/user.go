package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/daybook/apiserver/types"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (types.User, error) {
	const query = `
		SELECT id, username, password_hash, role, refresh_token, refresh_token_expiry, created_at
		FROM users
		WHERE id = $1`
	var user types.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&user.RefreshToken,
		&user.RefreshTokenExpiry,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	const query = `
		SELECT id, username, password_hash, role, refresh_token, refresh_token_expiry, created_at
		FROM users
		WHERE username = $1`
	var user types.User
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&user.RefreshToken,
		&user.RefreshTokenExpiry,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	user.CreatedAt = time.Now()

	const query = `
		INSERT INTO users (id, username, password_hash, role, refresh_token, refresh_token_expiry, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.Role,
		user.RefreshToken,
		user.RefreshTokenExpiry,
		user.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return types.User{}, ErrConflict
		}
		return types.User{}, err
	}
	return user, nil
}

// UpdatePasswordHash replaces the stored password hash for the user.
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	const query = `UPDATE users SET password_hash = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRefreshToken stores a new refresh token and expiry, overwriting any
// prior token for the user.
func (r *UserRepository) SetRefreshToken(ctx context.Context, id uuid.UUID, token string, expiry time.Time) error {
	const query = `
		UPDATE users
		SET refresh_token = $1,
			refresh_token_expiry = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, token, expiry, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// RotateRefreshToken swaps oldToken for newToken in a single compare-and-swap
// update. It returns ErrNotFound when the stored token no longer matches
// oldToken, which covers both a concurrent rotation and an intervening logout.
func (r *UserRepository) RotateRefreshToken(ctx context.Context, id uuid.UUID, oldToken, newToken string, expiry time.Time) error {
	const query = `
		UPDATE users
		SET refresh_token = $1,
			refresh_token_expiry = $2
		WHERE id = $3 AND refresh_token = $4`
	result, err := r.db.ExecContext(ctx, query, newToken, expiry, id, oldToken)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearRefreshToken removes the stored refresh token and stamps the expiry
// to now. Unknown users are not an error; logout is idempotent.
func (r *UserRepository) ClearRefreshToken(ctx context.Context, id uuid.UUID, now time.Time) error {
	const query = `
		UPDATE users
		SET refresh_token = NULL,
			refresh_token_expiry = $1
		WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, now, id)
	return err
}
