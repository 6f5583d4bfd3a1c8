package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"lostfound/internal/model"
)

type commentRepository struct {
	db *sqlx.DB
}

func NewCommentRepository(db *sqlx.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create inserts a comment and increments posts.comment_count atomically.
func (r *commentRepository) Create(ctx context.Context, c *model.Comment) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO comments (post_id, user_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, c.PostID, c.UserID, c.Content).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert comment: %w", err)
	}

	var count int
	err = tx.GetContext(ctx, &count,
		`UPDATE posts SET comment_count = comment_count + 1 WHERE id = $1 RETURNING comment_count`, c.PostID)
	if err != nil {
		return 0, fmt.Errorf("increment comment count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return count, nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID uuid.UUID) ([]model.Comment, error) {
	comments := []model.Comment{}
	err := r.db.SelectContext(ctx, &comments, `
		SELECT c.id, c.post_id, c.user_id, c.content, c.created_at,
		       u.id AS "author.id", u.full_name AS "author.full_name", u.avatar_url AS "author.avatar_url"
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.post_id = $1
		ORDER BY c.created_at ASC, c.id ASC
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

func (r *commentRepository) CountByPostIDs(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	if len(postIDs) == 0 {
		return map[uuid.UUID]int{}, nil
	}
	var rows []model.CountRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT post_id, COUNT(*) AS count
		FROM comments
		WHERE post_id = ANY($1)
		GROUP BY post_id
	`, uuidArray(postIDs))
	if err != nil {
		return nil, fmt.Errorf("count comments by posts: %w", err)
	}
	return model.CountMap(rows), nil
}

func (r *commentRepository) RecentOnOwnerPosts(ctx context.Context, ownerID uuid.UUID, limit int) ([]model.ActivityRow, error) {
	rows := []model.ActivityRow{}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT c.id, c.post_id, p.title AS post_title, c.user_id AS actor_id,
		       u.full_name AS actor_name, c.created_at
		FROM comments c
		JOIN posts p ON p.id = c.post_id
		LEFT JOIN users u ON u.id = c.user_id
		WHERE p.user_id = $1 AND c.user_id <> $1
		ORDER BY c.created_at DESC
		LIMIT $2
	`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent comments on owner posts: %w", err)
	}
	return rows, nil
}
