package feed

import (
	"github.com/google/uuid"

	"lostfound/internal/model"
)

// Item is a post as rendered for one viewer.
type Item struct {
	model.Post
	OwnerName    string     `json:"owner_name"`
	OwnerInitial string     `json:"owner_initial"`
	ClaimCount   int        `json:"claim_count"`
	CommentCount int        `json:"comment_count"`
	HasClaimed   bool       `json:"has_claimed"`
	IsOwner      bool       `json:"is_owner"`
	Affordance   Affordance `json:"affordance"`
	ShareURL     string     `json:"share_url"`
}

// Enrichment carries the per-post facts read alongside the posts. A nil count
// map means the live read was unavailable and stored values are used.
type Enrichment struct {
	ClaimCounts   map[uuid.UUID]int
	CommentCounts map[uuid.UUID]int
	Claimed       map[uuid.UUID]bool
	BaseURL       string
}

// ShareURL is the deep link that opens a single post.
func ShareURL(baseURL string, postID uuid.UUID) string {
	return baseURL + "/?post=" + postID.String()
}

// Build renders posts for the viewer, preserving order.
func Build(posts []model.Post, viewer model.Viewer, e Enrichment) []Item {
	items := make([]Item, len(posts))
	for i := range posts {
		items[i] = BuildOne(&posts[i], viewer, e)
	}
	return items
}

// BuildOne renders a single post.
func BuildOne(p *model.Post, viewer model.Viewer, e Enrichment) Item {
	counts := model.PostCounts{Comments: p.StoredCommentCount}.Reconcile(liveCounts(p.ID, e))
	hasClaimed := e.Claimed[p.ID]

	return Item{
		Post:         *p,
		OwnerName:    p.Owner.NameOr(model.AnonymousPostAuthor),
		OwnerInitial: p.Owner.Initial(),
		ClaimCount:   counts.Claims,
		CommentCount: counts.Comments,
		HasClaimed:   hasClaimed,
		IsOwner:      viewer.Is(p.UserID),
		Affordance:   Evaluate(p, viewer, hasClaimed, counts.Claims),
		ShareURL:     ShareURL(e.BaseURL, p.ID),
	}
}

func liveCounts(id uuid.UUID, e Enrichment) *model.PostCounts {
	if e.ClaimCounts == nil || e.CommentCounts == nil {
		return nil
	}
	return &model.PostCounts{Claims: e.ClaimCounts[id], Comments: e.CommentCounts[id]}
}
