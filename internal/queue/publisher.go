package queue

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Publisher defines the interface for publishing change events.
type Publisher interface {
	// Publish adds an event to the change stream.
	// Returns the message ID assigned by Redis.
	Publish(ctx context.Context, event ChangeEvent) (messageID string, err error)
}

// RedisPublisher implements Publisher using Redis Streams.
type RedisPublisher struct {
	client *redis.Client
	stream string
}

// NewPublisher creates a new Publisher writing to StreamChanges.
func NewPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client, stream: StreamChanges}
}

// Publish adds an event to the stream using XADD with an auto-generated ID.
func (p *RedisPublisher) Publish(ctx context.Context, event ChangeEvent) (string, error) {
	startTime := time.Now()

	values, err := event.ToMap()
	if err != nil {
		log.Printf("[Publisher] Publish FAILED: stream=%s type=%s err=%v", p.stream, event.Type, err)
		return "", fmt.Errorf("serialize event: %w", err)
	}

	messageID, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Result()
	if err != nil {
		log.Printf("[Publisher] Publish FAILED: stream=%s type=%s err=%v", p.stream, event.Type, err)
		return "", fmt.Errorf("xadd to stream: %w", err)
	}

	log.Printf("[Publisher] Publish OK: stream=%s type=%s post=%s actor=%s msgID=%s duration=%v",
		p.stream, event.Type, event.PostID, event.ActorID, messageID, time.Since(startTime))
	return messageID, nil
}
