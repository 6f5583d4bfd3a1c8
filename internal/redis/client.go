package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client is the single shared Redis client. The feed index, the change
// stream and pub/sub all share its pool.
type Client struct {
	*redis.Client
}

// Connect parses redisURL (redis://[:password@]host:port[/db]) and fails fast
// if the server does not answer a PING within timeout.
func Connect(ctx context.Context, redisURL string, timeout time.Duration) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := &Client{Client: redis.NewClient(opts)}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Client.Ping(pingCtx).Err(); err != nil {
		_ = client.Client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[Redis] Connected: addr=%s db=%d", opts.Addr, opts.DB)
	return client, nil
}
