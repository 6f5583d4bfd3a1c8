package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// RefreshToken is one link of a login's rotation chain. Every token minted
// from the same sign-in shares FamilyID, and only the SHA-256 of the raw
// token is stored.
type RefreshToken struct {
	ID         uuid.UUID  `db:"id"`
	FamilyID   uuid.UUID  `db:"family_id"`
	UserID     uuid.UUID  `db:"user_id"`
	TokenHash  string     `db:"token_hash"`
	UserAgent  *string    `db:"user_agent"`
	ClientIP   *string    `db:"client_ip"`
	ExpiresAt  time.Time  `db:"expires_at"`
	CreatedAt  time.Time  `db:"created_at"`
	RevokedAt  *time.Time `db:"revoked_at"`
	ReplacedBy *uuid.UUID `db:"replaced_by"`
}

// Redeemable reports why the token cannot be exchanged at now. A revoked
// token showing up again means its chain leaked, so that is reported as reuse.
func (t *RefreshToken) Redeemable(now time.Time) error {
	if t.RevokedAt != nil {
		return ErrRefreshTokenReused
	}
	if !now.Before(t.ExpiresAt) {
		return ErrRefreshTokenExpired
	}
	return nil
}

var (
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")
	ErrRefreshTokenReused   = errors.New("refresh token reuse detected")
)

// Error codes carried by 401 responses so clients know whether to refresh or
// sign in again.
const (
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeTokenInvalid = "TOKEN_INVALID"
	CodeTokenReused  = "TOKEN_REUSED"
)

// TokenPair is what /auth/refresh returns.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// LoginResponse is a TokenPair plus the signed-in user.
type LoginResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// RefreshTokenBody is the body of /auth/refresh and /auth/logout.
type RefreshTokenBody struct {
	RefreshToken string `json:"refresh_token"`
}
