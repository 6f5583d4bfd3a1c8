package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"lostfound/internal/model"
)

type claimRepository struct {
	db *sqlx.DB
}

func NewClaimRepository(db *sqlx.DB) ClaimRepository {
	return &claimRepository{db: db}
}

// Create inserts a claim. The one-claim-per-user rule lives in the unique
// constraint, so concurrent double submits resolve to ErrAlreadyClaimed.
func (r *claimRepository) Create(ctx context.Context, c *model.Claim) error {
	query := `
		INSERT INTO claims (post_id, claimer_id, message)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRowxContext(ctx, query, c.PostID, c.ClaimerID, c.Message).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if isDuplicateClaim(err) {
			return model.ErrAlreadyClaimed
		}
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

// isDuplicateClaim matches on SQLSTATE and constraint name, never on message text.
func isDuplicateClaim(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == uniqueViolation && pqErr.Constraint == model.ClaimUniqueConstraint
}

func (r *claimRepository) CountByPost(ctx context.Context, postID uuid.UUID) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM claims WHERE post_id = $1`, postID); err != nil {
		return 0, fmt.Errorf("count claims: %w", err)
	}
	return n, nil
}

func (r *claimRepository) CountByPostIDs(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	if len(postIDs) == 0 {
		return map[uuid.UUID]int{}, nil
	}
	var rows []model.CountRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT post_id, COUNT(*) AS count
		FROM claims
		WHERE post_id = ANY($1)
		GROUP BY post_id
	`, uuidArray(postIDs))
	if err != nil {
		return nil, fmt.Errorf("count claims by posts: %w", err)
	}
	return model.CountMap(rows), nil
}

func (r *claimRepository) ClaimedPostIDs(ctx context.Context, claimerID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	result := make(map[uuid.UUID]bool)
	if len(postIDs) == 0 {
		return result, nil
	}

	var claimed []uuid.UUID
	err := r.db.SelectContext(ctx, &claimed,
		`SELECT post_id FROM claims WHERE claimer_id = $1 AND post_id = ANY($2)`, claimerID, uuidArray(postIDs))
	if err != nil {
		return nil, fmt.Errorf("check claims: %w", err)
	}
	for _, id := range claimed {
		result[id] = true
	}
	return result, nil
}

func (r *claimRepository) RecentOnOwnerPosts(ctx context.Context, ownerID uuid.UUID, limit int) ([]model.ActivityRow, error) {
	rows := []model.ActivityRow{}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT c.id, c.post_id, p.title AS post_title, c.claimer_id AS actor_id,
		       u.full_name AS actor_name, c.created_at
		FROM claims c
		JOIN posts p ON p.id = c.post_id
		LEFT JOIN users u ON u.id = c.claimer_id
		WHERE p.user_id = $1
		ORDER BY c.created_at DESC
		LIMIT $2
	`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent claims on owner posts: %w", err)
	}
	return rows, nil
}
