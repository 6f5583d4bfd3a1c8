// Package realtime fans committed changes out to live feed sessions.
package realtime

import (
	"context"

	"github.com/google/uuid"
)

// Change is a coarse "something changed" signal. Receivers re-fetch instead
// of applying the payload.
type Change struct {
	Table  string    `json:"table"`
	Type   string    `json:"type"`
	PostID uuid.UUID `json:"post_id"`
}

// Source delivers changes for one table until the returned unsubscribe is
// called or ctx ends. Unsubscribe is safe to call more than once.
type Source interface {
	Subscribe(ctx context.Context, table string, onChange func(Change)) (unsubscribe func(), err error)
}

// Broadcaster publishes a change to every subscriber of its table.
type Broadcaster interface {
	Publish(ctx context.Context, change Change) error
}

// Stream is both ends of the change stream.
type Stream interface {
	Source
	Broadcaster
}
