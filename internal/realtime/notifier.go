package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"
	"sync"

	"github.com/redis/go-redis/v9"
)

// ChannelPrefix is prepended to the table name to form the pub/sub channel.
const ChannelPrefix = "changes:"

// Channel returns the Redis channel carrying changes for table.
func Channel(table string) string {
	return ChannelPrefix + table
}

// Notifier is a Stream over Redis pub/sub, so every API instance sees changes
// processed by any worker.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

func (n *Notifier) Publish(ctx context.Context, change Change) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}
	if err := n.rdb.Publish(ctx, Channel(change.Table), payload).Err(); err != nil {
		log.Printf("[Notifier] Publish FAILED: table=%s type=%s err=%v", change.Table, change.Type, err)
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

// Subscribe blocks until Redis confirms the subscription, then delivers
// changes from a goroutine. A panic in onChange is logged and swallowed.
func (n *Notifier) Subscribe(ctx context.Context, table string, onChange func(Change)) (func(), error) {
	if n.rdb == nil {
		return func() {}, nil
	}

	sub := n.rdb.Subscribe(ctx, Channel(table))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		log.Printf("[Notifier] Subscribe FAILED: table=%s err=%v", table, err)
		return nil, fmt.Errorf("subscribe %s: %w", table, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			cancel()
			_ = sub.Close()
			log.Printf("[Notifier] Unsubscribed: table=%s", table)
		})
	}

	ch := sub.Channel()
	go func() {
		defer unsubscribe()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				change := Change{Table: table}
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					log.Printf("[Notifier] bad payload on %s: %v", msg.Channel, err)
				}
				deliver(onChange, change)
			}
		}
	}()

	log.Printf("[Notifier] Subscribed: table=%s", table)
	return unsubscribe, nil
}

func deliver(onChange func(Change), change Change) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC in change subscriber: %v\n%s", r, debug.Stack())
		}
	}()
	onChange(change)
}
