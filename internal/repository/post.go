package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"lostfound/internal/cache"
	"lostfound/internal/model"
)

const postColumns = `
	p.id, p.user_id, p.type, p.title, p.category, p.location, p.description,
	p.image_url, p.image_key, p.status, p.comment_count, p.created_at,
	u.id AS "owner.id", u.full_name AS "owner.full_name", u.avatar_url AS "owner.avatar_url"
`

const postReturning = `
	id, user_id, type, title, category, location, description,
	image_url, image_key, status, comment_count, created_at
`

// CascadeStage is one delete statement run when a post is removed.
type CascadeStage struct {
	Table string
	Query string
}

// PostCascade lists the stages in execution order. Dependents go first so the
// post row is only removed once nothing references it.
var PostCascade = []CascadeStage{
	{Table: "claims", Query: `DELETE FROM claims WHERE post_id = $1`},
	{Table: "comments", Query: `DELETE FROM comments WHERE post_id = $1`},
	{Table: "posts", Query: `DELETE FROM posts WHERE id = $1`},
}

type postRepository struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) PostRepository {
	return &postRepository{db: db}
}

// Create inserts a post. Status starts active and created_at comes from the database.
func (r *postRepository) Create(ctx context.Context, np *model.NewPost) (*model.Post, error) {
	query := `
		INSERT INTO posts (user_id, type, title, category, location, description, image_url, image_key, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'active')
		RETURNING ` + postReturning

	var post model.Post
	err := r.db.GetContext(ctx, &post, query,
		np.UserID, np.Type, np.Title, np.Category, np.Location, np.Description, np.ImageURL, np.ImageKey)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	return &post, nil
}

func (r *postRepository) GetByID(ctx context.Context, postID uuid.UUID) (*model.Post, error) {
	query := `SELECT ` + postColumns + `
		FROM posts p
		JOIN users u ON u.id = p.user_id
		WHERE p.id = $1
	`
	var post model.Post
	err := r.db.GetContext(ctx, &post, query, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &post, nil
}

func (r *postRepository) GetByIDs(ctx context.Context, postIDs []uuid.UUID) ([]model.Post, error) {
	if len(postIDs) == 0 {
		return []model.Post{}, nil
	}

	query := `SELECT ` + postColumns + `
		FROM posts p
		JOIN users u ON u.id = p.user_id
		WHERE p.id = ANY($1)
	`
	var posts []model.Post
	if err := r.db.SelectContext(ctx, &posts, query, uuidArray(postIDs)); err != nil {
		return nil, fmt.Errorf("get posts by ids: %w", err)
	}

	byID := make(map[uuid.UUID]model.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}
	ordered := make([]model.Post, 0, len(postIDs))
	for _, id := range postIDs {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

func (r *postRepository) List(ctx context.Context) ([]model.Post, error) {
	query := `SELECT ` + postColumns + `
		FROM posts p
		JOIN users u ON u.id = p.user_id
		ORDER BY p.created_at DESC, p.id DESC
	`
	posts := []model.Post{}
	if err := r.db.SelectContext(ctx, &posts, query); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// ListByOwner returns every post of the owner, any status, newest first.
func (r *postRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Post, error) {
	query := `SELECT ` + postColumns + `
		FROM posts p
		JOIN users u ON u.id = p.user_id
		WHERE p.user_id = $1
		ORDER BY p.created_at DESC, p.id DESC
	`
	posts := []model.Post{}
	if err := r.db.SelectContext(ctx, &posts, query, ownerID); err != nil {
		return nil, fmt.Errorf("list posts by owner: %w", err)
	}
	return posts, nil
}

// Scores returns (id, created_at) pairs for warming the feed index.
func (r *postRepository) Scores(ctx context.Context) ([]cache.PostScore, error) {
	query := `
		SELECT id, (EXTRACT(EPOCH FROM created_at) * 1000000)::bigint AS timestamp
		FROM posts
		ORDER BY created_at DESC
	`
	type row struct {
		ID        uuid.UUID `db:"id"`
		Timestamp int64     `db:"timestamp"`
	}
	var rows []row
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("get post scores: %w", err)
	}

	scores := make([]cache.PostScore, len(rows))
	for i, row := range rows {
		scores[i] = cache.PostScore{PostID: row.ID, Timestamp: row.Timestamp}
	}
	return scores, nil
}

func (r *postRepository) UpdateStatus(ctx context.Context, postID, ownerID uuid.UUID, status model.PostStatus) (*model.Post, error) {
	query := `
		UPDATE posts SET status = $1
		WHERE id = $2 AND user_id = $3
		RETURNING ` + postReturning

	var post model.Post
	err := r.db.GetContext(ctx, &post, query, status, postID, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.missingOrForeign(ctx, postID)
	}
	if err != nil {
		return nil, fmt.Errorf("update post status: %w", err)
	}
	return &post, nil
}

// DeleteCascade runs PostCascade inside one transaction after checking
// ownership. A failing stage aborts the rest and rolls back.
func (r *postRepository) DeleteCascade(ctx context.Context, postID, ownerID uuid.UUID) (*model.Post, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var post model.Post
	err = tx.GetContext(ctx, &post, `SELECT `+postReturning+` FROM posts WHERE id = $1 FOR UPDATE`, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock post: %w", err)
	}
	if !post.OwnedBy(ownerID) {
		return nil, model.ErrNotPostOwner
	}

	for _, stage := range PostCascade {
		res, err := tx.ExecContext(ctx, stage.Query, postID)
		if err != nil {
			log.Printf("[PostRepository] DeleteCascade FAILED: post=%s stage=%s err=%v", postID, stage.Table, err)
			return nil, fmt.Errorf("delete %s: %w", stage.Table, err)
		}
		n, _ := res.RowsAffected()
		log.Printf("[PostRepository] DeleteCascade stage OK: post=%s stage=%s rows=%d", postID, stage.Table, n)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return &post, nil
}

// missingOrForeign tells a missing post apart from one owned by someone else.
func (r *postRepository) missingOrForeign(ctx context.Context, postID uuid.UUID) error {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`, postID); err != nil {
		return fmt.Errorf("check post exists: %w", err)
	}
	if exists {
		return model.ErrNotPostOwner
	}
	return model.ErrPostNotFound
}
