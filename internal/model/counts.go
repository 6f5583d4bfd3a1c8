package model

import "github.com/google/uuid"

// PostCounts are the derived claim and comment counts shown with a post.
// They are snapshots: local deltas are applied optimistically and a later
// authoritative read replaces them.
type PostCounts struct {
	Claims   int `json:"claim_count"`
	Comments int `json:"comment_count"`
}

// Apply adds local deltas, never going below zero.
func (c PostCounts) Apply(claimDelta, commentDelta int) PostCounts {
	c.Claims = max(0, c.Claims+claimDelta)
	c.Comments = max(0, c.Comments+commentDelta)
	return c
}

// Reconcile replaces the snapshot with an authoritative read when one exists.
func (c PostCounts) Reconcile(live *PostCounts) PostCounts {
	if live == nil {
		return c
	}
	return *live
}

// CountRow is one row of a grouped COUNT(*) query.
type CountRow struct {
	PostID uuid.UUID `db:"post_id"`
	Count  int       `db:"count"`
}

// CountMap turns grouped counts into a lookup. Missing posts count zero.
func CountMap(rows []CountRow) map[uuid.UUID]int {
	m := make(map[uuid.UUID]int, len(rows))
	for _, r := range rows {
		m[r.PostID] = r.Count
	}
	return m
}
