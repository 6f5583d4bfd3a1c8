package service

import (
	"context"
	"log"

	"lostfound/internal/cache"
	"lostfound/internal/observability"
	"lostfound/internal/queue"
)

// publishChange emits a change event after a committed write and reports
// whether it was queued. Failures are logged and never fail the request; the
// write already happened.
func publishChange(ctx context.Context, publisher queue.Publisher, event queue.ChangeEvent) bool {
	if publisher == nil {
		return false
	}
	msgID, err := publisher.Publish(context.WithoutCancel(ctx), event)
	if err != nil {
		log.Printf("[Events] Publish FAILED: type=%s post=%s err=%v", event.Type, event.PostID, err)
		return false
	}
	observability.ChangeEventsPublished.WithLabelValues(event.Type).Inc()
	log.Printf("[Events] Published %s: post=%s msgID=%s", event.Type, event.PostID, msgID)
	return true
}

// syncIndex applies a post insert or delete to the feed index directly. It
// stands in for the worker when the event could not be queued.
func syncIndex(ctx context.Context, index cache.FeedIndex, event queue.ChangeEvent) {
	if index == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	var err error
	switch event.Type {
	case queue.EventPostCreated:
		err = index.AddPost(ctx, event.PostID, event.CreatedAt)
	case queue.EventPostDeleted:
		err = index.RemovePost(ctx, event.PostID)
	default:
		return
	}
	if err != nil {
		log.Printf("[Events] Index sync FAILED: type=%s post=%s err=%v", event.Type, event.PostID, err)
		return
	}
	log.Printf("[Events] Index synced without queue: type=%s post=%s", event.Type, event.PostID)
}
