package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"lostfound/internal/cache"
	"lostfound/internal/feed"
	"lostfound/internal/model"
	"lostfound/internal/observability"
	"lostfound/internal/queue"
	"lostfound/internal/repository"
)

// PostService covers submission and the owner's history: status changes and
// cascade delete.
type PostService struct {
	postRepo    repository.PostRepository
	claimRepo   repository.ClaimRepository
	commentRepo repository.CommentRepository
	images      ImageStore
	publisher   queue.Publisher
	index       cache.FeedIndex
	baseURL     string
}

// NewPostService wires the service. images, publisher and index may be nil:
// posts with images are then rejected and no change events are emitted.
// index is written directly only when a post event cannot be published.
func NewPostService(
	postRepo repository.PostRepository,
	claimRepo repository.ClaimRepository,
	commentRepo repository.CommentRepository,
	images ImageStore,
	publisher queue.Publisher,
	index cache.FeedIndex,
	baseURL string,
) *PostService {
	return &PostService{
		postRepo:    postRepo,
		claimRepo:   claimRepo,
		commentRepo: commentRepo,
		images:      images,
		publisher:   publisher,
		index:       index,
		baseURL:     baseURL,
	}
}

// Create submits a draft. The image, when present, is uploaded first; if the
// upload fails nothing is written, and if the insert fails the uploaded
// object is removed again.
func (s *PostService) Create(ctx context.Context, viewer model.Viewer, draft *model.PostDraft, image *model.ImageUpload) (*model.Post, error) {
	if !viewer.Authenticated() {
		return nil, model.ErrAuthRequired
	}
	ownerID := viewer.ID()

	draft.Normalize()
	if c, ok := model.ResolveCategory(draft.Category); ok {
		draft.Category = c
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	np := &model.NewPost{
		UserID:      ownerID,
		Type:        draft.Type,
		Title:       draft.Title,
		Category:    draft.Category,
		Location:    draft.Location,
		Description: draft.Description,
	}

	if image != nil {
		if s.images == nil {
			return nil, fmt.Errorf("%w: image storage not configured", model.ErrImageUpload)
		}
		uploaded, err := s.images.UploadPostImage(ctx, ownerID, image)
		if err != nil {
			log.Printf("[PostService] Create image upload FAILED: user=%s err=%v", ownerID, err)
			return nil, err
		}
		np.ImageURL = &uploaded.URL
		np.ImageKey = &uploaded.Key
	}

	post, err := s.postRepo.Create(ctx, np)
	if err != nil {
		log.Printf("[PostService] Create FAILED: user=%s err=%v", ownerID, err)
		if np.ImageKey != nil {
			s.deleteImage(ctx, *np.ImageKey)
		}
		return nil, fmt.Errorf("create post: %w", err)
	}

	observability.PostsCreated.Inc()
	log.Printf("[PostService] Create OK: post=%s user=%s type=%s", post.ID, ownerID, post.Type)
	if event := queue.NewPostCreatedEvent(post.ID, ownerID, post.CreatedAt); !publishChange(ctx, s.publisher, event) {
		syncIndex(ctx, s.index, event)
	}
	return post, nil
}

// History lists every post of the viewer, newest first, with response and
// comment counts.
func (s *PostService) History(ctx context.Context, viewer model.Viewer) ([]feed.Item, error) {
	if !viewer.Authenticated() {
		return nil, model.ErrAuthRequired
	}

	posts, err := s.postRepo.ListByOwner(ctx, viewer.ID())
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return enrich(ctx, s.claimRepo, s.commentRepo, viewer, posts, s.baseURL), nil
}

// ToggleStatus flips active and resolved. The returned post is the persisted
// state.
func (s *PostService) ToggleStatus(ctx context.Context, viewer model.Viewer, postID uuid.UUID) (*model.Post, error) {
	if !viewer.Authenticated() {
		return nil, model.ErrAuthRequired
	}

	current, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !current.OwnedBy(viewer.ID()) {
		return nil, model.ErrNotPostOwner
	}
	return s.setStatus(ctx, viewer.ID(), postID, current.Status.Toggled())
}

// SetStatus sets an explicit status.
func (s *PostService) SetStatus(ctx context.Context, viewer model.Viewer, postID uuid.UUID, status model.PostStatus) (*model.Post, error) {
	if !viewer.Authenticated() {
		return nil, model.ErrAuthRequired
	}
	if !status.Valid() {
		return nil, model.ErrInvalidStatus
	}
	return s.setStatus(ctx, viewer.ID(), postID, status)
}

func (s *PostService) setStatus(ctx context.Context, ownerID, postID uuid.UUID, status model.PostStatus) (*model.Post, error) {
	post, err := s.postRepo.UpdateStatus(ctx, postID, ownerID, status)
	if err != nil {
		log.Printf("[PostService] SetStatus FAILED: post=%s status=%s err=%v", postID, status, err)
		return nil, err
	}

	log.Printf("[PostService] SetStatus OK: post=%s status=%s", postID, post.Status)
	publishChange(ctx, s.publisher, queue.NewPostUpdatedEvent(postID, ownerID))
	return post, nil
}

// Delete removes the post with its claims and comments. The caller must have
// confirmed; the stored image is removed afterwards on a best-effort basis.
func (s *PostService) Delete(ctx context.Context, viewer model.Viewer, postID uuid.UUID, confirmed bool) error {
	if !viewer.Authenticated() {
		return model.ErrAuthRequired
	}
	if !confirmed {
		return model.ErrConfirmationRequired
	}

	post, err := s.postRepo.DeleteCascade(ctx, postID, viewer.ID())
	if err != nil {
		log.Printf("[PostService] Delete FAILED: post=%s err=%v", postID, err)
		return err
	}

	if post.ImageKey != nil {
		s.deleteImage(ctx, *post.ImageKey)
	}

	observability.PostsDeleted.Inc()
	log.Printf("[PostService] Delete OK: post=%s", postID)
	if event := queue.NewPostDeletedEvent(postID, viewer.ID()); !publishChange(ctx, s.publisher, event) {
		syncIndex(ctx, s.index, event)
	}
	return nil
}

func (s *PostService) deleteImage(ctx context.Context, key string) {
	if s.images == nil {
		return
	}
	if err := s.images.DeleteObject(context.WithoutCancel(ctx), key); err != nil {
		log.Printf("[PostService] image cleanup FAILED: key=%s err=%v", key, err)
	}
}
