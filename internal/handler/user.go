package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"lostfound/internal/httputil"
	"lostfound/internal/model"
)

type profileService interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error)
}

type UserHandler struct {
	userService profileService
}

func NewUserHandler(userService profileService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// GetProfile handles GET /users/{id}: the public name and avatar only.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	profile, err := h.userService.GetProfile(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err, "Failed to get profile")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, profile)
}
