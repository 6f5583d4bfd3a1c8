package service

import (
	"context"
	"fmt"
	"log"
	"slices"

	"lostfound/internal/model"
	"lostfound/internal/repository"
)

// NotificationService builds the recent-activity list from claims and
// comments on the viewer's posts. Nothing is stored; the list is computed on
// every read.
type NotificationService struct {
	claimRepo   repository.ClaimRepository
	commentRepo repository.CommentRepository
}

func NewNotificationService(claimRepo repository.ClaimRepository, commentRepo repository.CommentRepository) *NotificationService {
	return &NotificationService{
		claimRepo:   claimRepo,
		commentRepo: commentRepo,
	}
}

// Recent returns the newest activity on the viewer's posts.
//
// Each source is capped at NotificationSourceLimit before merging, so a burst
// on one source can push the other out of the final NotificationLimit.
func (s *NotificationService) Recent(ctx context.Context, viewer model.Viewer) ([]model.Notification, error) {
	if !viewer.Authenticated() {
		return nil, model.ErrAuthRequired
	}
	ownerID := viewer.ID()

	claims, err := s.claimRepo.RecentOnOwnerPosts(ctx, ownerID, model.NotificationSourceLimit)
	if err != nil {
		log.Printf("[NotificationService] claims FAILED: user=%s err=%v", ownerID, err)
		return nil, fmt.Errorf("recent claims: %w", err)
	}

	comments, err := s.commentRepo.RecentOnOwnerPosts(ctx, ownerID, model.NotificationSourceLimit)
	if err != nil {
		log.Printf("[NotificationService] comments FAILED: user=%s err=%v", ownerID, err)
		return nil, fmt.Errorf("recent comments: %w", err)
	}

	return Merge(claims, comments, model.NotificationLimit), nil
}

// Merge tags both sources, orders them newest first and keeps limit entries.
func Merge(claims, comments []model.ActivityRow, limit int) []model.Notification {
	out := make([]model.Notification, 0, len(claims)+len(comments))
	for _, row := range claims {
		out = append(out, model.NewNotification(model.ActivityClaim, row))
	}
	for _, row := range comments {
		out = append(out, model.NewNotification(model.ActivityComment, row))
	}

	slices.SortStableFunc(out, func(a, b model.Notification) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
