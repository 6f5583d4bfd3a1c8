package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Comment is an immutable message on a post.
type Comment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PostID    uuid.UUID `db:"post_id" json:"post_id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	Author     *Profile `db:"author" json:"author,omitempty"` // Joined field
	AuthorName string   `db:"-" json:"author_name"`
}

// CreateCommentRequest is the request body for creating a comment.
type CreateCommentRequest struct {
	Content string `json:"content"`
}

// CommentResult is returned after posting; CommentCount is the post's count
// including the new comment.
type CommentResult struct {
	Comment      *Comment `json:"comment"`
	CommentCount int      `json:"comment_count"`
}

const MaxCommentLength = 2000

var (
	ErrContentRequired = errors.New("comment content is required")
	ErrContentTooLong  = errors.New("comment content too long")
)
