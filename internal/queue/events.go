package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types for the change stream
const (
	EventPostCreated    = "post_created"
	EventPostUpdated    = "post_updated"
	EventPostDeleted    = "post_deleted"
	EventClaimCreated   = "claim_created"
	EventCommentCreated = "comment_created"
)

// Tables a change can originate from
const (
	TablePosts    = "posts"
	TableClaims   = "claims"
	TableComments = "comments"
)

// Stream names
const (
	StreamChanges = "stream:changes"
)

// Consumer group name for change workers
const (
	ConsumerGroupChanges = "change_workers"
)

// ChangeEvent describes a committed write. Consumers treat it as a signal and
// re-read whatever state they need.
type ChangeEvent struct {
	Type      string    `json:"type"`
	Table     string    `json:"table"`
	Timestamp int64     `json:"timestamp"` // Unix timestamp when event occurred
	PostID    uuid.UUID `json:"post_id"`
	ActorID   uuid.UUID `json:"actor_id"`

	// CreatedAt is the post's created_at in unix microseconds (post_created only).
	CreatedAt int64 `json:"created_at,omitempty"`
}

// NewPostCreatedEvent is indexed into the feed by the worker.
func NewPostCreatedEvent(postID, ownerID uuid.UUID, createdAt time.Time) ChangeEvent {
	return ChangeEvent{
		Type:      EventPostCreated,
		Table:     TablePosts,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		ActorID:   ownerID,
		CreatedAt: createdAt.UnixMicro(),
	}
}

func NewPostUpdatedEvent(postID, ownerID uuid.UUID) ChangeEvent {
	return newEvent(EventPostUpdated, TablePosts, postID, ownerID)
}

// NewPostDeletedEvent is removed from the feed by the worker.
func NewPostDeletedEvent(postID, ownerID uuid.UUID) ChangeEvent {
	return newEvent(EventPostDeleted, TablePosts, postID, ownerID)
}

func NewClaimCreatedEvent(postID, claimerID uuid.UUID) ChangeEvent {
	return newEvent(EventClaimCreated, TableClaims, postID, claimerID)
}

func NewCommentCreatedEvent(postID, authorID uuid.UUID) ChangeEvent {
	return newEvent(EventCommentCreated, TableComments, postID, authorID)
}

func newEvent(eventType, table string, postID, actorID uuid.UUID) ChangeEvent {
	return ChangeEvent{
		Type:      eventType,
		Table:     table,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		ActorID:   actorID,
	}
}

// ToMap converts the event to a map for Redis XADD.
// Redis Streams store field-value pairs, so we serialize to JSON in a "data" field.
func (e ChangeEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseChangeEvent parses a ChangeEvent from Redis stream message values.
func ParseChangeEvent(values map[string]interface{}) (ChangeEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return ChangeEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event ChangeEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return ChangeEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if event.Type == "" {
		return ChangeEvent{}, fmt.Errorf("missing event type")
	}
	return event, nil
}
