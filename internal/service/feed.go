package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"lostfound/internal/cache"
	"lostfound/internal/feed"
	"lostfound/internal/model"
	"lostfound/internal/observability"
	"lostfound/internal/queue"
	"lostfound/internal/realtime"
	"lostfound/internal/repository"
)

type FeedService struct {
	index       cache.FeedIndex
	postRepo    repository.PostRepository
	claimRepo   repository.ClaimRepository
	commentRepo repository.CommentRepository
	changes     realtime.Source
	baseURL     string
}

// NewFeedService wires the feed. index and changes may be nil: the feed then
// reads straight from the database and live sessions get no updates.
func NewFeedService(
	index cache.FeedIndex,
	postRepo repository.PostRepository,
	claimRepo repository.ClaimRepository,
	commentRepo repository.CommentRepository,
	changes realtime.Source,
	baseURL string,
) *FeedService {
	return &FeedService{
		index:       index,
		postRepo:    postRepo,
		claimRepo:   claimRepo,
		commentRepo: commentRepo,
		changes:     changes,
		baseURL:     baseURL,
	}
}

// List returns the feed for the viewer: newest first, then type, category and
// search filters, then per-viewer enrichment.
//
// Flow:
// 1. Ordered post IDs from the Redis index (warmed from the DB on miss)
// 2. Hydrate posts joined with owner profiles
// 3. Filter
// 4. Live counts, viewer claims and affordance per post
func (s *FeedService) List(ctx context.Context, viewer model.Viewer, filter feed.Filter) ([]feed.Item, error) {
	startTime := time.Now()

	posts, err := s.loadPosts(ctx)
	if err != nil {
		return nil, err
	}

	filtered := filter.Apply(posts)
	items := enrich(ctx, s.claimRepo, s.commentRepo, viewer, filtered, s.baseURL)

	log.Printf("[FeedService] List OK: viewer=%s loaded=%d returned=%d duration=%v",
		viewerLabel(viewer), len(posts), len(items), time.Since(startTime))
	return items, nil
}

// Get returns one enriched post, e.g. for a shared link.
func (s *FeedService) Get(ctx context.Context, viewer model.Viewer, postID uuid.UUID) (*feed.Item, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	items := enrich(ctx, s.claimRepo, s.commentRepo, viewer, []model.Post{*post}, s.baseURL)
	return &items[0], nil
}

// Watch opens a live session: it subscribes to post changes, delivers the
// initial feed, then re-fetches the whole feed on every change. The change
// payload is not inspected. Calls to onUpdate never overlap. The returned
// close releases the subscription and is safe to call more than once.
func (s *FeedService) Watch(ctx context.Context, viewer model.Viewer, filter feed.Filter, onUpdate func([]feed.Item)) (func(), error) {
	var mu sync.Mutex
	closed := false

	refresh := func() {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		items, err := s.List(ctx, viewer, filter)
		if err != nil {
			log.Printf("[FeedService] Watch refresh FAILED: viewer=%s err=%v", viewerLabel(viewer), err)
			return
		}
		onUpdate(items)
	}

	unsubscribe := func() {}
	if s.changes != nil {
		unsub, err := s.changes.Subscribe(ctx, queue.TablePosts, func(realtime.Change) { refresh() })
		if err != nil {
			return nil, fmt.Errorf("subscribe to changes: %w", err)
		}
		unsubscribe = unsub
	}

	observability.LiveSessions.Inc()
	log.Printf("[FeedService] Watch started: viewer=%s", viewerLabel(viewer))

	var once sync.Once
	closeFn := func() {
		once.Do(func() {
			unsubscribe()
			mu.Lock()
			closed = true
			mu.Unlock()
			observability.LiveSessions.Dec()
			log.Printf("[FeedService] Watch closed: viewer=%s", viewerLabel(viewer))
		})
	}

	refresh()
	return closeFn, nil
}

// loadPosts reads every post newest first, through the index when one is
// configured. Filters run afterwards, so no post is out of their reach.
// Index errors fall back to the database.
func (s *FeedService) loadPosts(ctx context.Context) ([]model.Post, error) {
	if s.index == nil {
		return s.listFromDB(ctx)
	}

	exists, err := s.index.Exists(ctx)
	if err != nil {
		return s.fallback(ctx, err)
	}
	if !exists {
		log.Printf("[FeedService] Index miss, warming...")
		if err := s.warmIndex(ctx); err != nil {
			return s.fallback(ctx, err)
		}
	}

	ids, err := s.index.GetFeed(ctx, 0)
	if err != nil {
		return s.fallback(ctx, err)
	}
	if len(ids) == 0 {
		return []model.Post{}, nil
	}

	posts, err := s.postRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate posts: %w", err)
	}
	return posts, nil
}

func (s *FeedService) warmIndex(ctx context.Context) error {
	scores, err := s.postRepo.Scores(ctx)
	if err != nil {
		return fmt.Errorf("load post scores: %w", err)
	}
	return s.index.WarmCache(ctx, scores)
}

func (s *FeedService) fallback(ctx context.Context, cause error) ([]model.Post, error) {
	observability.FeedIndexFallbacks.Inc()
	log.Printf("[FeedService] Index unavailable, reading from DB: %v", cause)
	return s.listFromDB(ctx)
}

func (s *FeedService) listFromDB(ctx context.Context) ([]model.Post, error) {
	posts, err := s.postRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

func viewerLabel(v model.Viewer) string {
	if !v.Authenticated() {
		return "anonymous"
	}
	return v.ID().String()
}
