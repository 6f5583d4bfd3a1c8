package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"lostfound/internal/httputil"
	"lostfound/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// UserIDKey is the context key for the authenticated user's ID
	UserIDKey contextKey = "user_id"
)

var errBadClaims = errors.New("invalid token claims")

// AuthMiddleware rejects requests without a valid access token.
// Checks the Authorization header first, then the access_token cookie.
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := tokenFromRequest(r)
			if tokenString == "" {
				httputil.WriteUnauthorized(w, "Missing authentication token")
				return
			}

			userID, err := parseAccessToken(tokenString, jwtSecret)
			if err != nil {
				switch {
				case errors.Is(err, jwt.ErrTokenExpired):
					httputil.WriteUnauthorizedWithCode(w, model.CodeTokenExpired, "Access token has expired")
				case errors.Is(err, errBadClaims):
					httputil.WriteUnauthorizedWithCode(w, model.CodeTokenInvalid, "Invalid token claims")
				default:
					httputil.WriteUnauthorizedWithCode(w, model.CodeTokenInvalid, "Invalid authentication token")
				}
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthMiddleware attaches the user when a valid token is present and
// lets the request through anonymously otherwise. Used by the public feed.
func OptionalAuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenString := tokenFromRequest(r); tokenString != "" {
				if userID, err := parseAccessToken(tokenString, jwtSecret); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), UserIDKey, userID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

// ViewerFromContext returns the request's viewer, anonymous when no user is attached.
func ViewerFromContext(ctx context.Context) model.Viewer {
	if userID, ok := GetUserIDFromContext(ctx); ok {
		return model.ViewerFor(userID)
	}
	return model.AnonymousViewer()
}

func tokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	// Browsers cannot set headers on a websocket handshake.
	if cookie, err := r.Cookie("access_token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

func parseAccessToken(tokenString, jwtSecret string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, jwt.ErrTokenInvalidClaims
	}

	raw, ok := claims["user_id"].(string)
	if !ok {
		return uuid.Nil, errBadClaims
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errBadClaims
	}
	return userID, nil
}
