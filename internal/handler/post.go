package handler

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"lostfound/internal/feed"
	"lostfound/internal/httputil"
	"lostfound/internal/model"
	"lostfound/internal/service"
)

type postService interface {
	Create(ctx context.Context, viewer model.Viewer, draft *model.PostDraft, image *model.ImageUpload) (*model.Post, error)
	History(ctx context.Context, viewer model.Viewer) ([]feed.Item, error)
	ToggleStatus(ctx context.Context, viewer model.Viewer, postID uuid.UUID) (*model.Post, error)
	SetStatus(ctx context.Context, viewer model.Viewer, postID uuid.UUID, status model.PostStatus) (*model.Post, error)
	Delete(ctx context.Context, viewer model.Viewer, postID uuid.UUID, confirmed bool) error
}

type PostHandler struct {
	postService postService
}

func NewPostHandler(postService postService) *PostHandler {
	return &PostHandler{
		postService: postService,
	}
}

// NewDraft handles GET /posts/draft: an empty submission draft on its first
// step.
func (h *PostHandler) NewDraft(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireViewer(w, r); !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, model.DraftStepResult{Draft: model.NewPostDraft()})
}

// DraftStep handles POST /posts/draft/step?direction=next|back
//
// Moving forward is refused until the current step is complete. Moving back
// always succeeds and never re-validates.
func (h *PostHandler) DraftStep(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireViewer(w, r); !ok {
		return
	}

	draft := model.NewPostDraft()
	if err := httputil.DecodeJSON(w, r, draft); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	draft.Normalize()
	if c, ok := model.ResolveCategory(draft.Category); ok {
		draft.Category = c
	}

	from := draft.Step
	switch r.URL.Query().Get("direction") {
	case "", "next":
		draft.Next()
	case "back":
		draft.Prev()
	default:
		httputil.WriteBadRequest(w, "direction must be next or back")
		return
	}

	result := model.DraftStepResult{
		Draft:      draft,
		Moved:      draft.Step != from,
		CanAdvance: draft.CanAdvance(),
	}
	if err := draft.StepErr(); err != nil {
		result.Blocker = err.Error()
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// Create handles POST /posts
//
// Multipart form fields: type, title, category, location, description and an
// optional image file.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	viewer, ok := requireViewer(w, r)
	if !ok {
		return
	}

	maxFormSize := int64(model.MaxPostImageSizeBytes) + 1024*1024 // allow form overhead
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, http.ErrNotMultipart):
			httputil.WriteBadRequest(w, "Content-Type must be multipart/form-data")
		case errors.As(err, &maxErr):
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Image exceeds 10MB limit")
		default:
			httputil.WriteBadRequest(w, "Invalid form data")
		}
		return
	}
	defer r.MultipartForm.RemoveAll()

	draft := &model.PostDraft{
		Type:        model.PostType(strings.ToLower(strings.TrimSpace(r.FormValue("type")))),
		Title:       r.FormValue("title"),
		Category:    r.FormValue("category"),
		Location:    r.FormValue("location"),
		Description: r.FormValue("description"),
	}

	var image *model.ImageUpload
	file, header, err := r.FormFile("image")
	switch {
	case err == nil:
		defer file.Close()
		image, err = service.ReadImageUpload(file, header)
		if err != nil {
			writeDomainError(w, err, "Failed to read image")
			return
		}
	case !errors.Is(err, http.ErrMissingFile):
		httputil.WriteBadRequest(w, "Invalid image upload")
		return
	}

	post, err := h.postService.Create(r.Context(), viewer, draft, image)
	if err != nil {
		writeDomainError(w, err, "Failed to create post")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, post)
}

// History handles GET /me/posts
func (h *PostHandler) History(w http.ResponseWriter, r *http.Request) {
	viewer, ok := requireViewer(w, r)
	if !ok {
		return
	}

	items, err := h.postService.History(r.Context(), viewer)
	if err != nil {
		writeDomainError(w, err, "Failed to load your posts")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, items)
}

// UpdateStatus handles PATCH /posts/{id}/status.
// {"status":"resolved"} sets the status; an empty body or status toggles.
func (h *PostHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	viewer, ok := requireViewer(w, r)
	if !ok {
		return
	}
	postID, ok := postIDParam(w, r)
	if !ok {
		return
	}

	var req model.UpdateStatusRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	var (
		post *model.Post
		err  error
	)
	if req.Status == "" {
		post, err = h.postService.ToggleStatus(r.Context(), viewer, postID)
	} else {
		post, err = h.postService.SetStatus(r.Context(), viewer, postID, req.Status)
	}
	if err != nil {
		writeDomainError(w, err, "Failed to update status")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, post)
}

// Delete handles DELETE /posts/{id}?confirm=true
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	viewer, ok := requireViewer(w, r)
	if !ok {
		return
	}
	postID, ok := postIDParam(w, r)
	if !ok {
		return
	}

	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	if err := h.postService.Delete(r.Context(), viewer, postID, confirmed); err != nil {
		if !errors.Is(err, model.ErrConfirmationRequired) {
			log.Printf("[PostHandler] Delete: post=%s user=%s err=%v", postID, viewer.ID(), err)
		}
		writeDomainError(w, err, "Failed to delete post")
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "Post deleted successfully")
}
