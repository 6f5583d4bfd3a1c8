package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"lostfound/internal/model"
)

const refreshTokenColumns = `id, family_id, user_id, token_hash, user_agent, client_ip,
	expires_at, created_at, revoked_at, replaced_by`

type refreshTokenRepository struct {
	db *sqlx.DB
}

func NewRefreshTokenRepository(db *sqlx.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

const insertRefreshToken = `
	INSERT INTO refresh_tokens (family_id, user_id, token_hash, user_agent, client_ip, expires_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, created_at`

func (r *refreshTokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	err := r.db.QueryRowxContext(ctx, insertRefreshToken,
		token.FamilyID, token.UserID, token.TokenHash, token.UserAgent, token.ClientIP, token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

func (r *refreshTokenRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	var token model.RefreshToken
	err := r.db.GetContext(ctx, &token, `SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE token_hash = $1`, tokenHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrRefreshTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &token, nil
}

// Rotate stores next and retires currentID in favour of it, atomically. When
// currentID was already retired, by a concurrent refresh or a replay, nothing
// is written and ErrRefreshTokenReused is returned.
func (r *refreshTokenRepository) Rotate(ctx context.Context, currentID uuid.UUID, next *model.RefreshToken) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowxContext(ctx, insertRefreshToken,
		next.FamilyID, next.UserID, next.TokenHash, next.UserAgent, next.ClientIP, next.ExpiresAt,
	).Scan(&next.ID, &next.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert rotated token: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked_at = NOW(), replaced_by = $2
		WHERE id = $1 AND revoked_at IS NULL`, currentID, next.ID)
	if err != nil {
		return fmt.Errorf("retire refresh token: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrRefreshTokenReused
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *refreshTokenRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeFamily ends one sign-in: every live token minted from it.
func (r *refreshTokenRepository) RevokeFamily(ctx context.Context, familyID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked_at = NOW() WHERE family_id = $1 AND revoked_at IS NULL`, familyID)
	if err != nil {
		return 0, fmt.Errorf("revoke token family: %w", err)
	}
	return res.RowsAffected()
}

func (r *refreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke user tokens: %w", err)
	}
	return res.RowsAffected()
}

// DeleteExpired removes tokens that expired more than olderThan ago.
func (r *refreshTokenRepository) DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return res.RowsAffected()
}
