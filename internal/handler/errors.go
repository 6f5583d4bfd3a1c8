package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"lostfound/internal/httputil"
	"lostfound/internal/model"
	"lostfound/internal/transport/http/middleware"
)

const signInMessage = "Please sign in first!"

// writeDomainError maps service sentinels to HTTP responses. Anything else is
// logged and reported as a 500 with failMessage.
func writeDomainError(w http.ResponseWriter, err error, failMessage string) {
	switch {
	case errors.Is(err, model.ErrAuthRequired):
		httputil.WriteUnauthorized(w, signInMessage)

	case errors.Is(err, model.ErrPostNotFound):
		httputil.WriteNotFound(w, "Post not found")
	case errors.Is(err, model.ErrUserNotFound):
		httputil.WriteNotFound(w, "User not found")

	case errors.Is(err, model.ErrNotPostOwner):
		httputil.WriteForbidden(w, "Only the owner can change this post")
	case errors.Is(err, model.ErrCannotClaimOwnPost):
		httputil.WriteForbidden(w, "You cannot respond to your own post")

	case errors.Is(err, model.ErrPostResolved):
		httputil.WriteConflict(w, "This item has already been returned")

	case errors.Is(err, model.ErrConfirmationRequired):
		httputil.WriteBadRequestWithCode(w, httputil.ErrCodeConfirmationRequired, "Deleting a post removes its responses and comments. Repeat with confirm=true.")

	case errors.Is(err, model.ErrFileTooLarge):
		httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Image exceeds 10MB limit")
	case errors.Is(err, model.ErrInvalidImageType):
		httputil.WriteBadRequestWithCode(w, model.CodeInvalidImageType, "Unsupported image type. Allowed: jpeg, png, gif, webp")
	case errors.Is(err, model.ErrImageUpload):
		log.Printf("[Handler] image upload: %v", err)
		httputil.WriteInternalError(w, "Failed to upload image")

	case errors.Is(err, model.ErrInvalidPostType),
		errors.Is(err, model.ErrInvalidStatus),
		errors.Is(err, model.ErrTitleRequired),
		errors.Is(err, model.ErrInvalidCategory),
		errors.Is(err, model.ErrLocationRequired),
		errors.Is(err, model.ErrDescriptionRequired),
		errors.Is(err, model.ErrContentRequired),
		errors.Is(err, model.ErrContentTooLong):
		httputil.WriteBadRequest(w, capitalize(err.Error()))

	default:
		log.Printf("[Handler] %s: %v", failMessage, err)
		httputil.WriteInternalError(w, failMessage)
	}
}

// requireViewer returns the authenticated viewer or writes a 401.
func requireViewer(w http.ResponseWriter, r *http.Request) (model.Viewer, bool) {
	viewer := middleware.ViewerFromContext(r.Context())
	if !viewer.Authenticated() {
		httputil.WriteUnauthorized(w, signInMessage)
		return viewer, false
	}
	return viewer, true
}

// postIDParam parses {id} or writes a 400.
func postIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return uuid.Nil, false
	}
	return id, true
}

// clientIP extracts the client IP from the request
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// RemoteAddr is "IP:port"
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
