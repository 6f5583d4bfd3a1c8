package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"lostfound/internal/feed"
	"lostfound/internal/model"
	"lostfound/internal/observability"
	"lostfound/internal/queue"
	"lostfound/internal/repository"
)

type ClaimService struct {
	postRepo  repository.PostRepository
	claimRepo repository.ClaimRepository
	publisher queue.Publisher
}

func NewClaimService(postRepo repository.PostRepository, claimRepo repository.ClaimRepository, publisher queue.Publisher) *ClaimService {
	return &ClaimService{
		postRepo:  postRepo,
		claimRepo: claimRepo,
		publisher: publisher,
	}
}

// Claim records that the viewer found (or owns) the item. Claiming twice is
// not an error: the result reports Claimed with Created false.
func (s *ClaimService) Claim(ctx context.Context, viewer model.Viewer, postID uuid.UUID) (*model.ClaimResult, error) {
	if !viewer.Authenticated() {
		return nil, model.ErrAuthRequired
	}
	claimerID := viewer.ID()

	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	// Reopening may return a resolved card to any active state, so resolved is
	// rejected before asking the state machine. A repeat claim passes and is
	// settled by the unique constraint.
	switch state := feed.Evaluate(post, viewer, false, 0).State; {
	case state == feed.StateResolved:
		observability.ClaimsTotal.WithLabelValues(observability.ClaimRejected).Inc()
		return nil, model.ErrPostResolved
	case !feed.CanTransition(state, feed.StateActiveClaimed):
		observability.ClaimsTotal.WithLabelValues(observability.ClaimRejected).Inc()
		return nil, model.ErrCannotClaimOwnPost
	}

	claim := &model.Claim{
		PostID:    postID,
		ClaimerID: claimerID,
		Message:   model.DefaultClaimMessage(post.Type),
	}

	result := &model.ClaimResult{Claimed: true, Created: true}
	err = s.claimRepo.Create(ctx, claim)
	switch {
	case errors.Is(err, model.ErrAlreadyClaimed):
		result.Created = false
		observability.ClaimsTotal.WithLabelValues(observability.ClaimDuplicate).Inc()
		log.Printf("[ClaimService] Claim duplicate: post=%s user=%s", postID, claimerID)
	case err != nil:
		observability.ClaimsTotal.WithLabelValues(observability.ClaimFailed).Inc()
		log.Printf("[ClaimService] Claim FAILED: post=%s user=%s err=%v", postID, claimerID, err)
		return nil, fmt.Errorf("create claim: %w", err)
	default:
		observability.ClaimsTotal.WithLabelValues(observability.ClaimCreated).Inc()
		log.Printf("[ClaimService] Claim OK: post=%s user=%s claim=%s", postID, claimerID, claim.ID)
	}

	count, err := s.claimRepo.CountByPost(ctx, postID)
	if err != nil {
		log.Printf("[ClaimService] CountByPost FAILED: post=%s err=%v", postID, err)
	}
	result.ClaimCount = count

	if result.Created {
		publishChange(ctx, s.publisher, queue.NewClaimCreatedEvent(postID, claimerID))
	}
	return result, nil
}
