package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bazaar/internal/domain"
)

var (
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenRevoked  = errors.New("refresh token has been revoked")
)

// refreshTokenColumns is the column order shared by the insert and select
// statements below. Scan calls must match it.
const refreshTokenColumns = "id, user_id, token, expires_at, created_at, revoked"

// RefreshTokenRepository persists the long-lived tokens backing the
// access-token refresh flow. Tokens are never deleted, only flagged revoked,
// so a reused token after logout surfaces as ErrRefreshTokenRevoked rather
// than a miss.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error)
	Revoke(ctx context.Context, token string) error
}

type refreshTokenRepository struct {
	db *sql.DB
}

// NewRefreshTokenRepository creates a new instance of RefreshTokenRepository
func NewRefreshTokenRepository(db *sql.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

// Create stores a freshly issued refresh token
func (r *refreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	query := fmt.Sprintf(
		"INSERT INTO refresh_tokens (%s) VALUES ($1, $2, $3, $4, $5, $6)",
		refreshTokenColumns,
	)

	_, err := r.db.ExecContext(ctx, query,
		token.ID, token.UserID, token.Token,
		token.ExpiresAt, token.CreatedAt, token.Revoked,
	)
	if err != nil {
		return fmt.Errorf("failed to create refresh token: %w", err)
	}

	return nil
}

// FindByToken looks up a token by its opaque string. A revoked row is
// reported as ErrRefreshTokenRevoked, a missing one as
// ErrRefreshTokenNotFound.
func (r *refreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM refresh_tokens WHERE token = $1",
		refreshTokenColumns,
	)

	rt, err := scanRefreshToken(r.db.QueryRowContext(ctx, query, token))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("failed to find refresh token: %w", err)
	}

	if rt.Revoked {
		return nil, ErrRefreshTokenRevoked
	}

	return rt, nil
}

// Revoke flags a token so it can no longer mint access tokens. Revoking an
// already revoked token is a no-op success.
func (r *refreshTokenRepository) Revoke(ctx context.Context, token string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1", token)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrRefreshTokenNotFound
	}

	return nil
}

func scanRefreshToken(row *sql.Row) (*domain.RefreshToken, error) {
	rt := &domain.RefreshToken{}
	err := row.Scan(&rt.ID, &rt.UserID, &rt.Token, &rt.ExpiresAt, &rt.CreatedAt, &rt.Revoked)
	if err != nil {
		return nil, err
	}
	return rt, nil
}
