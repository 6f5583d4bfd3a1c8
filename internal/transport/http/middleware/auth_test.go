package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lostfound/internal/httputil"
	"lostfound/internal/model"
)

const testSecret = "middleware-secret"

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(userID uuid.UUID) jwt.MapClaims {
	return jwt.MapClaims{
		"user_id": userID.String(),
		"exp":     time.Now().Add(time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}
}

// echoViewer writes the viewer the middleware attached.
var echoViewer = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	viewer := ViewerFromContext(r.Context())
	id := ""
	if viewer.Authenticated() {
		id = viewer.ID().String()
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"user_id": id})
})

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body httputil.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error.Code
}

func TestAuthMiddleware(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name     string
		setup    func(r *http.Request)
		wantCode int
		wantErr  string
	}{
		{
			name:     "missing token",
			setup:    func(r *http.Request) {},
			wantCode: http.StatusUnauthorized,
			wantErr:  httputil.ErrCodeUnauthorized,
		},
		{
			name: "bearer header",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+signToken(t, validClaims(userID), testSecret))
			},
			wantCode: http.StatusOK,
		},
		{
			name: "cookie",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "access_token", Value: signToken(t, validClaims(userID), testSecret)})
			},
			wantCode: http.StatusOK,
		},
		{
			name: "expired",
			setup: func(r *http.Request) {
				claims := validClaims(userID)
				claims["exp"] = time.Now().Add(-time.Minute).Unix()
				r.Header.Set("Authorization", "Bearer "+signToken(t, claims, testSecret))
			},
			wantCode: http.StatusUnauthorized,
			wantErr:  model.CodeTokenExpired,
		},
		{
			name: "wrong secret",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+signToken(t, validClaims(userID), "other"))
			},
			wantCode: http.StatusUnauthorized,
			wantErr:  model.CodeTokenInvalid,
		},
		{
			name: "numeric user id",
			setup: func(r *http.Request) {
				claims := validClaims(userID)
				claims["user_id"] = 42
				r.Header.Set("Authorization", "Bearer "+signToken(t, claims, testSecret))
			},
			wantCode: http.StatusUnauthorized,
			wantErr:  model.CodeTokenInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			AuthMiddleware(testSecret)(echoViewer).ServeHTTP(rec, req)

			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, errorCode(t, rec))
				return
			}
			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, userID.String(), body["user_id"])
		})
	}
}

func TestOptionalAuthMiddleware(t *testing.T) {
	userID := uuid.New()

	serve := func(header string) map[string]string {
		req := httptest.NewRequest(http.MethodGet, "/feed", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		OptionalAuthMiddleware(testSecret)(echoViewer).ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		return body
	}

	assert.Equal(t, "", serve("")["user_id"])
	assert.Equal(t, "", serve("Bearer garbage")["user_id"], "bad tokens fall back to anonymous")
	assert.Equal(t, userID.String(), serve("Bearer "+signToken(t, validClaims(userID), testSecret))["user_id"])
}
