package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"lostfound/internal/cache"
	"lostfound/internal/observability"
	"lostfound/internal/queue"
	"lostfound/internal/realtime"
)

// Handler processes change events from the queue: it keeps the feed index in
// step with post inserts/deletes and fans every change out to live sessions.
type Handler struct {
	index       cache.FeedIndex
	broadcaster realtime.Broadcaster
}

// NewHandler creates a new event handler. index may be nil when Redis is not
// configured; the feed then reads straight from the database.
func NewHandler(index cache.FeedIndex, broadcaster realtime.Broadcaster) *Handler {
	return &Handler{
		index:       index,
		broadcaster: broadcaster,
	}
}

// HandleEvent routes an event to the appropriate handler based on type.
// The broadcast still happens when the index update fails.
func (h *Handler) HandleEvent(ctx context.Context, event queue.ChangeEvent) error {
	startTime := time.Now()
	var indexErr error

	switch event.Type {
	case queue.EventPostCreated:
		indexErr = h.handlePostCreated(ctx, event)
	case queue.EventPostDeleted:
		indexErr = h.handlePostDeleted(ctx, event)
	case queue.EventPostUpdated, queue.EventClaimCreated, queue.EventCommentCreated:
		// broadcast only
	default:
		log.Printf("[Worker] Unknown event type: %s", event.Type)
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	broadcastErr := h.broadcast(ctx, event)

	if err := errors.Join(indexErr, broadcastErr); err != nil {
		log.Printf("[Worker] HandleEvent FAILED: type=%s post=%s duration=%v err=%v",
			event.Type, event.PostID, time.Since(startTime), err)
		return err
	}

	log.Printf("[Worker] HandleEvent OK: type=%s post=%s duration=%v", event.Type, event.PostID, time.Since(startTime))
	return nil
}

func (h *Handler) handlePostCreated(ctx context.Context, event queue.ChangeEvent) error {
	if h.index == nil {
		return nil
	}
	score := event.CreatedAt
	if score == 0 {
		score = event.Timestamp * int64(time.Second/time.Microsecond)
	}
	if err := h.index.AddPost(ctx, event.PostID, score); err != nil {
		return fmt.Errorf("index post: %w", err)
	}
	return nil
}

func (h *Handler) handlePostDeleted(ctx context.Context, event queue.ChangeEvent) error {
	if h.index == nil {
		return nil
	}
	if err := h.index.RemovePost(ctx, event.PostID); err != nil {
		return fmt.Errorf("unindex post: %w", err)
	}
	return nil
}

func (h *Handler) broadcast(ctx context.Context, event queue.ChangeEvent) error {
	if h.broadcaster == nil {
		return nil
	}
	change := realtime.Change{Table: event.Table, Type: event.Type, PostID: event.PostID}
	if err := h.broadcaster.Publish(ctx, change); err != nil {
		return fmt.Errorf("broadcast change: %w", err)
	}
	observability.ChangeEventsBroadcast.WithLabelValues(event.Table).Inc()
	return nil
}
