package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActivityKind tags where a notification came from.
type ActivityKind string

const (
	ActivityClaim   ActivityKind = "claim"
	ActivityComment ActivityKind = "comment"
)

// ActivityRow is a claim or comment on one of the viewer's posts, joined with
// the post title and the actor's profile.
type ActivityRow struct {
	ID        uuid.UUID `db:"id"`
	PostID    uuid.UUID `db:"post_id"`
	PostTitle string    `db:"post_title"`
	ActorID   uuid.UUID `db:"actor_id"`
	ActorName *string   `db:"actor_name"`
	CreatedAt time.Time `db:"created_at"`
}

// Notification is one entry of the recent-activity list. It is computed on
// read and never stored.
type Notification struct {
	ID        string       `json:"id"`
	Kind      ActivityKind `json:"kind"`
	PostID    uuid.UUID    `json:"post_id"`
	PostTitle string       `json:"post_title"`
	ActorID   uuid.UUID    `json:"actor_id"`
	ActorName string       `json:"actor_name"`
	Text      string       `json:"text"`
	CreatedAt time.Time    `json:"created_at"`
}

// NewNotification renders an activity row.
func NewNotification(kind ActivityKind, row ActivityRow) Notification {
	actor := (&Profile{FullName: row.ActorName}).NameOr(AnonymousActor)

	var text string
	switch kind {
	case ActivityClaim:
		text = fmt.Sprintf("%s responded to your post \"%s\"", actor, row.PostTitle)
	default:
		text = fmt.Sprintf("%s commented on \"%s\"", actor, row.PostTitle)
	}

	return Notification{
		ID:        fmt.Sprintf("%s-%s", kind, row.ID),
		Kind:      kind,
		PostID:    row.PostID,
		PostTitle: row.PostTitle,
		ActorID:   row.ActorID,
		ActorName: actor,
		Text:      text,
		CreatedAt: row.CreatedAt,
	}
}

// Aggregator limits.
const (
	NotificationSourceLimit = 10
	NotificationLimit       = 15
)
