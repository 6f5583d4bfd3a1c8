package service

import (
	"context"
	"log"

	"github.com/google/uuid"

	"lostfound/internal/feed"
	"lostfound/internal/model"
	"lostfound/internal/repository"
)

// enrich reads live counts and the viewer's claims for posts and renders
// them. Failed reads degrade to stored counts and "not claimed".
func enrich(
	ctx context.Context,
	claimRepo repository.ClaimRepository,
	commentRepo repository.CommentRepository,
	viewer model.Viewer,
	posts []model.Post,
	baseURL string,
) []feed.Item {
	if len(posts) == 0 {
		return []feed.Item{}
	}

	ids := make([]uuid.UUID, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}

	e := feed.Enrichment{BaseURL: baseURL}

	claimCounts, err := claimRepo.CountByPostIDs(ctx, ids)
	if err != nil {
		log.Printf("[Enrich] claim counts FAILED: posts=%d err=%v", len(ids), err)
	} else {
		e.ClaimCounts = claimCounts
	}

	commentCounts, err := commentRepo.CountByPostIDs(ctx, ids)
	if err != nil {
		log.Printf("[Enrich] comment counts FAILED: posts=%d err=%v", len(ids), err)
	} else {
		e.CommentCounts = commentCounts
	}

	if viewer.Authenticated() {
		claimed, err := claimRepo.ClaimedPostIDs(ctx, viewer.ID(), ids)
		if err != nil {
			log.Printf("[Enrich] viewer claims FAILED: user=%s err=%v", viewer.ID(), err)
		} else {
			e.Claimed = claimed
		}
	}

	return feed.Build(posts, viewer, e)
}
