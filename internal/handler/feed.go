package handler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"lostfound/internal/feed"
	"lostfound/internal/httputil"
	"lostfound/internal/model"
	"lostfound/internal/transport/http/middleware"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = (livePongWait * 9) / 10
	liveReadLimit  = 512
)

type feedService interface {
	List(ctx context.Context, viewer model.Viewer, filter feed.Filter) ([]feed.Item, error)
	Get(ctx context.Context, viewer model.Viewer, postID uuid.UUID) (*feed.Item, error)
	Watch(ctx context.Context, viewer model.Viewer, filter feed.Filter, onUpdate func([]feed.Item)) (func(), error)
}

type FeedHandler struct {
	feedService feedService
	upgrader    websocket.Upgrader
}

func NewFeedHandler(feedService feedService) *FeedHandler {
	return &FeedHandler{
		feedService: feedService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The feed is public; auth rides on the cookie or header.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// LiveMessage is one frame on the live feed socket.
type LiveMessage struct {
	Type  string      `json:"type"`
	Items []feed.Item `json:"items"`
}

// GetFeed handles GET /feed
//
// Query params:
//   - type: all | lost | found (unknown values mean all)
//   - category: sidebar slug or category name; empty or "all" for every category
//   - q: case-insensitive search over title, description, location and category
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}
	viewer := middleware.ViewerFromContext(r.Context())

	items, err := h.feedService.List(r.Context(), viewer, filter)
	if err != nil {
		writeDomainError(w, err, "Failed to get feed")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, items)
}

// GetPost handles GET /posts/{id}, the target of share links.
func (h *FeedHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	postID, ok := postIDParam(w, r)
	if !ok {
		return
	}

	item, err := h.feedService.Get(r.Context(), middleware.ViewerFromContext(r.Context()), postID)
	if err != nil {
		writeDomainError(w, err, "Failed to get post")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, item)
}

// Live handles GET /feed/live. It upgrades to a WebSocket and pushes the
// whole filtered feed every time a post changes. Client frames are ignored;
// the session ends when the socket closes.
func (h *FeedHandler) Live(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}
	viewer := middleware.ViewerFromContext(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		log.Printf("[FeedHandler] Live upgrade FAILED: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Only the newest snapshot matters; a slow socket skips stale ones.
	updates := make(chan []feed.Item, 1)
	closeWatch, err := h.feedService.Watch(ctx, viewer, filter, func(items []feed.Item) {
		select {
		case <-updates:
		default:
		}
		updates <- items
	})
	if err != nil {
		log.Printf("[FeedHandler] Live watch FAILED: %v", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "feed unavailable"),
			time.Now().Add(liveWriteWait))
		return
	}
	defer closeWatch()

	go readUntilClosed(conn, cancel)

	ticker := time.NewTicker(livePingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(liveWriteWait))
			return
		case items := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteJSON(LiveMessage{Type: "feed", Items: items}); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readUntilClosed drains client frames so pongs and close frames are
// processed, and cancels the session when the peer goes away.
func readUntilClosed(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(liveReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(livePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func parseFilter(w http.ResponseWriter, r *http.Request) (feed.Filter, bool) {
	q := r.URL.Query()
	filter := feed.Filter{
		Type:  feed.ParseTypeFacet(q.Get("type")),
		Query: strings.TrimSpace(q.Get("q")),
	}

	if raw := strings.TrimSpace(q.Get("category")); raw != "" && !strings.EqualFold(raw, "all") {
		category, ok := model.ResolveCategory(raw)
		if !ok {
			httputil.WriteBadRequest(w, "Unknown category")
			return filter, false
		}
		filter.Category = category
	}
	return filter, true
}
