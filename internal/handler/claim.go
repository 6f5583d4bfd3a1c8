package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"lostfound/internal/httputil"
	"lostfound/internal/model"
)

type claimService interface {
	Claim(ctx context.Context, viewer model.Viewer, postID uuid.UUID) (*model.ClaimResult, error)
}

type ClaimHandler struct {
	claimService claimService
}

func NewClaimHandler(claimService claimService) *ClaimHandler {
	return &ClaimHandler{claimService: claimService}
}

// Create handles POST /posts/{id}/claims
// Returns 201 for a new claim and 200 when the viewer had already claimed.
func (h *ClaimHandler) Create(w http.ResponseWriter, r *http.Request) {
	viewer, ok := requireViewer(w, r)
	if !ok {
		return
	}
	postID, ok := postIDParam(w, r)
	if !ok {
		return
	}

	result, err := h.claimService.Claim(r.Context(), viewer, postID)
	if err != nil {
		writeDomainError(w, err, "Failed to submit claim")
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, result)
}
