package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// FeedIndexKey is the sorted set holding every post id scored by created_at.
	FeedIndexKey = "feed:posts"

	// FeedIndexTTL is set when the index is warmed and never extended, so the
	// index is rebuilt from the database at least this often.
	FeedIndexTTL = time.Hour
)

// addIfIndexed adds a member only to an existing index. An absent index is
// rebuilt from the database on the next read, and the post is part of it.
var addIfIndexed = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
redis.call("ZADD", KEYS[1], ARGV[1], ARGV[2])
return 1
`)

// PostScore is a post id with its created_at in unix microseconds.
type PostScore struct {
	PostID    uuid.UUID
	Timestamp int64
}

// FeedIndex keeps the newest-first ordering of the public feed.
// The service layer warms it from the database when Exists returns false.
type FeedIndex interface {
	// AddPost indexes a post when the index exists; otherwise it is a no-op.
	AddPost(ctx context.Context, postID uuid.UUID, timestamp int64) error

	RemovePost(ctx context.Context, postID uuid.UUID) error

	// GetFeed returns up to limit post ids, newest first. A limit <= 0
	// returns every indexed post. Reads never extend the TTL.
	GetFeed(ctx context.Context, limit int) ([]uuid.UUID, error)

	// WarmCache loads every post and starts the TTL.
	WarmCache(ctx context.Context, posts []PostScore) error

	Size(ctx context.Context) (int64, error)

	Exists(ctx context.Context) (bool, error)
}

// RedisFeedIndex implements FeedIndex using a Redis sorted set.
type RedisFeedIndex struct {
	client *redis.Client
	key    string
}

// NewFeedIndex creates a FeedIndex backed by Redis.
func NewFeedIndex(client *redis.Client) FeedIndex {
	return &RedisFeedIndex{client: client, key: FeedIndexKey}
}

func (c *RedisFeedIndex) AddPost(ctx context.Context, postID uuid.UUID, timestamp int64) error {
	startTime := time.Now()

	added, err := addIfIndexed.Run(ctx, c.client, []string{c.key}, timestamp, postID.String()).Int()
	if err != nil {
		log.Printf("[FeedIndex] AddPost FAILED: post=%s err=%v", postID, err)
		return fmt.Errorf("add post to feed index: %w", err)
	}
	if added == 0 {
		log.Printf("[FeedIndex] AddPost skipped: post=%s (index not warm)", postID)
		return nil
	}

	log.Printf("[FeedIndex] AddPost OK: post=%s timestamp=%d duration=%v",
		postID, timestamp, time.Since(startTime))
	return nil
}

func (c *RedisFeedIndex) RemovePost(ctx context.Context, postID uuid.UUID) error {
	removed, err := c.client.ZRem(ctx, c.key, postID.String()).Result()
	if err != nil {
		log.Printf("[FeedIndex] RemovePost FAILED: post=%s err=%v", postID, err)
		return fmt.Errorf("remove post from feed index: %w", err)
	}

	log.Printf("[FeedIndex] RemovePost OK: post=%s removed=%d", postID, removed)
	return nil
}

func (c *RedisFeedIndex) GetFeed(ctx context.Context, limit int) ([]uuid.UUID, error) {
	startTime := time.Now()

	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	members, err := c.client.ZRevRange(ctx, c.key, 0, stop).Result()
	if err != nil {
		log.Printf("[FeedIndex] GetFeed FAILED: err=%v", err)
		return nil, fmt.Errorf("get feed index: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			log.Printf("[FeedIndex] GetFeed parse error: member=%s err=%v", m, err)
			return nil, fmt.Errorf("parse post id: %w", err)
		}
		ids = append(ids, id)
	}

	log.Printf("[FeedIndex] GetFeed OK: limit=%d returned=%d duration=%v",
		limit, len(ids), time.Since(startTime))
	return ids, nil
}

func (c *RedisFeedIndex) WarmCache(ctx context.Context, posts []PostScore) error {
	if len(posts) == 0 {
		log.Printf("[FeedIndex] WarmCache: posts=0 (nothing to warm)")
		return nil
	}
	startTime := time.Now()

	members := make([]redis.Z, len(posts))
	for i, p := range posts {
		members[i] = redis.Z{
			Score:  float64(p.Timestamp),
			Member: p.PostID.String(),
		}
	}

	pipe := c.client.Pipeline()
	pipe.ZAdd(ctx, c.key, members...)
	pipe.Expire(ctx, c.key, FeedIndexTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[FeedIndex] WarmCache FAILED: posts=%d err=%v", len(posts), err)
		return fmt.Errorf("warm feed index: %w", err)
	}

	log.Printf("[FeedIndex] WarmCache OK: posts=%d duration=%v", len(posts), time.Since(startTime))
	return nil
}

func (c *RedisFeedIndex) Size(ctx context.Context) (int64, error) {
	size, err := c.client.ZCard(ctx, c.key).Result()
	if err != nil {
		log.Printf("[FeedIndex] Size FAILED: err=%v", err)
		return 0, fmt.Errorf("get feed index size: %w", err)
	}
	return size, nil
}

func (c *RedisFeedIndex) Exists(ctx context.Context) (bool, error) {
	n, err := c.client.Exists(ctx, c.key).Result()
	if err != nil {
		log.Printf("[FeedIndex] Exists FAILED: err=%v", err)
		return false, fmt.Errorf("check feed index exists: %w", err)
	}
	return n > 0, nil
}
