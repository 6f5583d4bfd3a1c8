package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"lostfound/internal/model"
	"lostfound/internal/observability"
	"lostfound/internal/queue"
	"lostfound/internal/repository"
)

type CommentService struct {
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	userRepo    repository.UserRepository
	publisher   queue.Publisher
}

func NewCommentService(
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	userRepo repository.UserRepository,
	publisher queue.Publisher,
) *CommentService {
	return &CommentService{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		userRepo:    userRepo,
		publisher:   publisher,
	}
}

// List returns the thread oldest first. Comments are loaded per post on
// demand and are never part of the feed payload.
func (s *CommentService) List(ctx context.Context, postID uuid.UUID) ([]model.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}

	comments, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	for i := range comments {
		comments[i].AuthorName = comments[i].Author.NameOr(model.AnonymousCommentAuthor)
	}
	return comments, nil
}

// Create adds a comment. Content is trimmed and limited to MaxCommentLength
// characters.
func (s *CommentService) Create(ctx context.Context, viewer model.Viewer, postID uuid.UUID, content string) (*model.CommentResult, error) {
	if !viewer.Authenticated() {
		return nil, model.ErrAuthRequired
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, model.ErrContentRequired
	}
	if utf8.RuneCountInString(content) > model.MaxCommentLength {
		return nil, model.ErrContentTooLong
	}

	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}

	comment := &model.Comment{
		PostID:  postID,
		UserID:  viewer.ID(),
		Content: content,
	}
	count, err := s.commentRepo.Create(ctx, comment)
	if err != nil {
		log.Printf("[CommentService] Create FAILED: post=%s user=%s err=%v", postID, viewer.ID(), err)
		return nil, fmt.Errorf("create comment: %w", err)
	}

	if author, err := s.userRepo.GetByID(ctx, viewer.ID()); err == nil {
		comment.Author = author.Profile()
	}
	comment.AuthorName = comment.Author.NameOr(model.AnonymousCommentAuthor)

	observability.CommentsCreated.Inc()
	log.Printf("[CommentService] Create OK: post=%s comment=%s count=%d", postID, comment.ID, count)
	publishChange(ctx, s.publisher, queue.NewCommentCreatedEvent(postID, viewer.ID()))
	return &model.CommentResult{Comment: comment, CommentCount: count}, nil
}
