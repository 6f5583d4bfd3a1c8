package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"lostfound/internal/queue"
)

// InlinePublisher handles events on the publishing goroutine instead of going
// through a stream. Used when Redis is not configured.
type InlinePublisher struct {
	handler EventHandler
	seq     atomic.Int64
}

func NewInlinePublisher(handler EventHandler) *InlinePublisher {
	return &InlinePublisher{handler: handler}
}

func (p *InlinePublisher) Publish(ctx context.Context, event queue.ChangeEvent) (string, error) {
	if err := p.handler.HandleEvent(ctx, event); err != nil {
		return "", err
	}
	return fmt.Sprintf("inline-%d", p.seq.Add(1)), nil
}
