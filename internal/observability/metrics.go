// Package observability holds the service's prometheus metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Claim outcomes
const (
	ClaimCreated   = "created"
	ClaimDuplicate = "duplicate"
	ClaimRejected  = "rejected"
	ClaimFailed    = "failed"
)

var (
	// PostsCreated counts successful submissions.
	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lostfound_posts_created_total",
		Help: "Total number of posts created",
	})

	// PostsDeleted counts completed cascade deletes.
	PostsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lostfound_posts_deleted_total",
		Help: "Total number of posts deleted",
	})

	// ClaimsTotal counts claim attempts by outcome.
	ClaimsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lostfound_claims_total",
		Help: "Total number of claim attempts by outcome",
	}, []string{"outcome"})

	CommentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lostfound_comments_created_total",
		Help: "Total number of comments created",
	})

	// ChangeEventsPublished counts events written to the change stream by type.
	ChangeEventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lostfound_change_events_published_total",
		Help: "Total change events published by type",
	}, []string{"type"})

	// ChangeEventsBroadcast counts changes fanned out to live sessions by table.
	ChangeEventsBroadcast = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lostfound_change_events_broadcast_total",
		Help: "Total change events broadcast by table",
	}, []string{"table"})

	// FeedIndexFallbacks counts feed reads served from the database because
	// the Redis index failed.
	FeedIndexFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lostfound_feed_index_fallbacks_total",
		Help: "Total feed reads that fell back to the database",
	})

	// LiveSessions is the number of open live feed sessions.
	LiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lostfound_live_sessions",
		Help: "Number of open live feed sessions",
	})
)
