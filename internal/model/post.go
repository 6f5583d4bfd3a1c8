package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// PostType says whether the poster lost the item or found it.
type PostType string

const (
	PostTypeLost  PostType = "lost"
	PostTypeFound PostType = "found"
)

// Valid reports whether t is one of the closed set of post types.
func (t PostType) Valid() bool {
	return t == PostTypeLost || t == PostTypeFound
}

// PostStatus is the lifecycle state of a post.
type PostStatus string

const (
	PostStatusActive   PostStatus = "active"
	PostStatusResolved PostStatus = "resolved"
)

func (s PostStatus) Valid() bool {
	return s == PostStatusActive || s == PostStatusResolved
}

// Toggled returns the opposite status.
func (s PostStatus) Toggled() PostStatus {
	if s == PostStatusResolved {
		return PostStatusActive
	}
	return PostStatusResolved
}

// Post is a lost or found report. CreatedAt is assigned by the database and
// never written again.
type Post struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	UserID      uuid.UUID  `db:"user_id" json:"user_id"`
	Type        PostType   `db:"type" json:"type"`
	Title       string     `db:"title" json:"title"`
	Category    string     `db:"category" json:"category"`
	Location    string     `db:"location" json:"location"`
	Description string     `db:"description" json:"description"`
	ImageURL    *string    `db:"image_url" json:"image_url"`
	ImageKey    *string    `db:"image_key" json:"-"`
	Status      PostStatus `db:"status" json:"status"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`

	// StoredCommentCount is the denormalized column; live reads override it.
	StoredCommentCount int `db:"comment_count" json:"-"`

	// Joined field (users table)
	Owner *Profile `db:"owner" json:"owner,omitempty"`
}

// IsResolved reports whether the item has been returned.
func (p *Post) IsResolved() bool {
	return p.Status == PostStatusResolved
}

// OwnedBy reports whether userID created the post.
func (p *Post) OwnedBy(userID uuid.UUID) bool {
	return p.UserID == userID
}

// NewPost is what the repository needs to insert a post.
type NewPost struct {
	UserID      uuid.UUID
	Type        PostType
	Title       string
	Category    string
	Location    string
	Description string
	ImageURL    *string
	ImageKey    *string
}

// UpdateStatusRequest is the request body for PATCH /posts/{id}/status.
// An empty Status toggles.
type UpdateStatusRequest struct {
	Status PostStatus `json:"status"`
}

// Post errors
var (
	ErrPostNotFound         = errors.New("post not found")
	ErrNotPostOwner         = errors.New("not the owner of this post")
	ErrInvalidPostType      = errors.New("invalid post type")
	ErrInvalidStatus        = errors.New("invalid post status")
	ErrTitleRequired        = errors.New("title is required")
	ErrInvalidCategory      = errors.New("invalid category")
	ErrLocationRequired     = errors.New("location is required")
	ErrDescriptionRequired  = errors.New("description is required")
	ErrConfirmationRequired = errors.New("deletion must be confirmed")
	ErrAuthRequired         = errors.New("authentication required")
)
