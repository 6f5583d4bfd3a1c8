package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"lostfound/internal/cache"
	"lostfound/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	// Rotate inserts next and revokes currentID in one step. It returns
	// model.ErrRefreshTokenReused when currentID is no longer live.
	Rotate(ctx context.Context, currentID uuid.UUID, next *model.RefreshToken) error
	Revoke(ctx context.Context, id uuid.UUID) error
	RevokeFamily(ctx context.Context, familyID uuid.UUID) (int64, error)
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

type PostRepository interface {
	Create(ctx context.Context, post *model.NewPost) (*model.Post, error)
	// GetByID returns the post joined with its owner's profile.
	GetByID(ctx context.Context, postID uuid.UUID) (*model.Post, error)
	// GetByIDs hydrates posts in the order of postIDs, skipping missing ones.
	GetByIDs(ctx context.Context, postIDs []uuid.UUID) ([]model.Post, error)
	// List returns every post, newest first.
	List(ctx context.Context) ([]model.Post, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Post, error)
	// Scores returns (id, created_at) for every post, for warming the feed index.
	Scores(ctx context.Context) ([]cache.PostScore, error)
	// UpdateStatus changes status only when ownerID owns the post.
	UpdateStatus(ctx context.Context, postID, ownerID uuid.UUID, status model.PostStatus) (*model.Post, error)
	// DeleteCascade removes the post's claims, then its comments, then the
	// post, in one transaction. Returns the deleted post.
	DeleteCascade(ctx context.Context, postID, ownerID uuid.UUID) (*model.Post, error)
}

type ClaimRepository interface {
	// Create returns model.ErrAlreadyClaimed when the claimer already claimed the post.
	Create(ctx context.Context, claim *model.Claim) error
	CountByPost(ctx context.Context, postID uuid.UUID) (int, error)
	CountByPostIDs(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID]int, error)
	// ClaimedPostIDs reports which of postIDs the claimer has claimed.
	ClaimedPostIDs(ctx context.Context, claimerID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]bool, error)
	// RecentOnOwnerPosts returns the newest claims on posts owned by ownerID.
	RecentOnOwnerPosts(ctx context.Context, ownerID uuid.UUID, limit int) ([]model.ActivityRow, error)
}

type CommentRepository interface {
	// Create inserts the comment and bumps the post's stored count in one
	// transaction. Returns the new count.
	Create(ctx context.Context, comment *model.Comment) (int, error)
	// ListByPost returns comments oldest first with author profiles.
	ListByPost(ctx context.Context, postID uuid.UUID) ([]model.Comment, error)
	CountByPostIDs(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID]int, error)
	// RecentOnOwnerPosts returns the newest comments on posts owned by ownerID,
	// excluding the owner's own comments.
	RecentOnOwnerPosts(ctx context.Context, ownerID uuid.UUID, limit int) ([]model.ActivityRow, error)
}
