package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"lostfound/internal/httputil"
	"lostfound/internal/model"
)

type commentService interface {
	List(ctx context.Context, postID uuid.UUID) ([]model.Comment, error)
	Create(ctx context.Context, viewer model.Viewer, postID uuid.UUID, content string) (*model.CommentResult, error)
}

type CommentHandler struct {
	commentService commentService
}

func NewCommentHandler(commentService commentService) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
	}
}

// Create handles POST /posts/{id}/comments
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	viewer, ok := requireViewer(w, r)
	if !ok {
		return
	}
	postID, ok := postIDParam(w, r)
	if !ok {
		return
	}

	var req model.CreateCommentRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	result, err := h.commentService.Create(r.Context(), viewer, postID, req.Content)
	if err != nil {
		writeDomainError(w, err, "Failed to create comment")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, result)
}

// List handles GET /posts/{id}/comments, oldest first.
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	postID, ok := postIDParam(w, r)
	if !ok {
		return
	}

	comments, err := h.commentService.List(r.Context(), postID)
	if err != nil {
		writeDomainError(w, err, "Failed to get comments")
		return
	}
	if comments == nil {
		comments = []model.Comment{}
	}

	httputil.WriteJSON(w, http.StatusOK, comments)
}
