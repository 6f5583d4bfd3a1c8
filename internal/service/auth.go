package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"lostfound/internal/config"
	"lostfound/internal/model"
	"lostfound/internal/repository"
)

// AuthService issues access tokens and rotating refresh tokens. Each sign-in
// owns one token family; replaying a retired token revokes that family only.
type AuthService struct {
	refreshTokenRepo repository.RefreshTokenRepository
	config           *config.Config
	now              func() time.Time
}

func NewAuthService(refreshTokenRepo repository.RefreshTokenRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		refreshTokenRepo: refreshTokenRepo,
		config:           cfg,
		now:              time.Now,
	}
}

// GenerateTokenPair signs the user in: a fresh token family is started and
// its first refresh token stored alongside a new access token.
func (s *AuthService) GenerateTokenPair(ctx context.Context, userID uuid.UUID, userAgent, clientIP string) (*model.TokenPair, error) {
	token, raw := s.newRefreshToken(userID, uuid.New(), userAgent, clientIP)
	pair, err := s.tokenPair(userID, raw)
	if err != nil {
		return nil, err
	}
	if err := s.refreshTokenRepo.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return pair, nil
}

// RefreshTokens exchanges a live refresh token for a new pair in the same
// family. Presenting a token that was already exchanged revokes the whole
// family, which signs out whoever holds its newest token.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshTokenRaw, userAgent, clientIP string) (*model.TokenPair, uuid.UUID, error) {
	current, err := s.refreshTokenRepo.FindByTokenHash(ctx, hashToken(refreshTokenRaw))
	if err != nil {
		return nil, uuid.Nil, err
	}
	if err := current.Redeemable(s.now()); err != nil {
		if errors.Is(err, model.ErrRefreshTokenReused) {
			s.revokeFamily(ctx, current)
		}
		return nil, uuid.Nil, err
	}

	next, raw := s.newRefreshToken(current.UserID, current.FamilyID, userAgent, clientIP)
	pair, err := s.tokenPair(current.UserID, raw)
	if err != nil {
		return nil, uuid.Nil, err
	}
	if err := s.refreshTokenRepo.Rotate(ctx, current.ID, next); err != nil {
		if errors.Is(err, model.ErrRefreshTokenReused) {
			s.revokeFamily(ctx, current)
		}
		return nil, uuid.Nil, err
	}

	log.Printf("[AuthService] Refresh OK: user=%s family=%s", current.UserID, current.FamilyID)
	return pair, current.UserID, nil
}

// RevokeRefreshToken signs out one device.
func (s *AuthService) RevokeRefreshToken(ctx context.Context, refreshTokenRaw string) error {
	token, err := s.refreshTokenRepo.FindByTokenHash(ctx, hashToken(refreshTokenRaw))
	if err != nil {
		return err
	}
	return s.refreshTokenRepo.Revoke(ctx, token.ID)
}

// RevokeAllUserTokens signs the user out everywhere.
func (s *AuthService) RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error {
	n, err := s.refreshTokenRepo.RevokeAllForUser(ctx, userID)
	if err != nil {
		return err
	}
	log.Printf("[AuthService] LogoutAll OK: user=%s revoked=%d", userID, n)
	return nil
}

func (s *AuthService) revokeFamily(ctx context.Context, token *model.RefreshToken) {
	n, err := s.refreshTokenRepo.RevokeFamily(context.WithoutCancel(ctx), token.FamilyID)
	if err != nil {
		log.Printf("[AuthService] RevokeFamily FAILED: user=%s family=%s err=%v", token.UserID, token.FamilyID, err)
		return
	}
	log.Printf("[AuthService] Refresh token reuse: user=%s family=%s revoked=%d", token.UserID, token.FamilyID, n)
}

func (s *AuthService) newRefreshToken(userID, familyID uuid.UUID, userAgent, clientIP string) (*model.RefreshToken, string) {
	raw := uuid.New().String()
	token := &model.RefreshToken{
		FamilyID:  familyID,
		UserID:    userID,
		TokenHash: hashToken(raw),
		ExpiresAt: s.now().Add(time.Duration(s.config.RefreshTokenMaxAge) * time.Second),
	}
	if userAgent != "" {
		token.UserAgent = &userAgent
	}
	if clientIP != "" {
		token.ClientIP = &clientIP
	}
	return token, raw
}

func (s *AuthService) tokenPair(userID uuid.UUID, refreshTokenRaw string) (*model.TokenPair, error) {
	accessToken, err := s.generateAccessToken(userID)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &model.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenRaw,
		ExpiresIn:    s.config.AccessTokenMaxAge,
	}, nil
}

// PurgeExpired deletes refresh tokens that expired more than olderThan ago.
func (s *AuthService) PurgeExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	n, err := s.refreshTokenRepo.DeleteExpired(ctx, olderThan)
	if err != nil {
		log.Printf("[AuthService] PurgeExpired FAILED: err=%v", err)
		return 0, err
	}
	log.Printf("[AuthService] PurgeExpired OK: deleted=%d", n)
	return n, nil
}

func (s *AuthService) generateAccessToken(userID uuid.UUID) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"exp":     now.Add(time.Duration(s.config.AccessTokenMaxAge) * time.Second).Unix(),
		"iat":     now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
