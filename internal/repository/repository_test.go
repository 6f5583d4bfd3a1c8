package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lostfound/internal/model"
)

func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "postgres"), mock
}

var postReturningCols = []string{
	"id", "user_id", "type", "title", "category", "location", "description",
	"image_url", "image_key", "status", "comment_count", "created_at",
}

var postJoinedCols = append(append([]string{}, postReturningCols...), "owner.id", "owner.full_name", "owner.avatar_url")

func postRow(id, owner uuid.UUID, status string) []driver.Value {
	return []driver.Value{
		id.String(), owner.String(), "lost", "Blue backpack", model.CategoryClothing, "Library", "Laptop inside",
		nil, "u/abc_1.jpg", status, 2, time.Now(),
	}
}

// =============================================================================
// POST REPOSITORY
// =============================================================================

func TestPostRepository_DeleteCascade_RunsStagesInOrder(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	postID, owner := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM posts WHERE id = $1 FOR UPDATE`)).
		WithArgs(postID).
		WillReturnRows(sqlmock.NewRows(postReturningCols).AddRow(postRow(postID, owner, "active")...))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM claims WHERE post_id = $1`)).
		WithArgs(postID).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM comments WHERE post_id = $1`)).
		WithArgs(postID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM posts WHERE id = $1`)).
		WithArgs(postID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	post, err := repo.DeleteCascade(context.Background(), postID, owner)
	require.NoError(t, err)
	assert.Equal(t, postID, post.ID)
	require.NotNil(t, post.ImageKey)
	assert.Equal(t, "u/abc_1.jpg", *post.ImageKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_DeleteCascade_StopsOnStageFailure(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	postID, owner := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM posts WHERE id = $1 FOR UPDATE`)).
		WillReturnRows(sqlmock.NewRows(postReturningCols).AddRow(postRow(postID, owner, "active")...))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM claims WHERE post_id = $1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM comments WHERE post_id = $1`)).
		WillReturnError(errors.New("permission denied for table comments"))
	mock.ExpectRollback()

	_, err := repo.DeleteCascade(context.Background(), postID, owner)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete comments")
	// the post delete was never attempted
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_DeleteCascade_RejectsNonOwner(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	postID, owner := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WillReturnRows(sqlmock.NewRows(postReturningCols).AddRow(postRow(postID, owner, "active")...))
	mock.ExpectRollback()

	_, err := repo.DeleteCascade(context.Background(), postID, uuid.New())
	assert.ErrorIs(t, err, model.ErrNotPostOwner)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_DeleteCascade_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).WillReturnRows(sqlmock.NewRows(postReturningCols))
	mock.ExpectRollback()

	_, err := repo.DeleteCascade(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, model.ErrPostNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_UpdateStatus(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	postID, owner := uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE posts SET status = $1`)).
		WithArgs(model.PostStatusResolved, postID, owner).
		WillReturnRows(sqlmock.NewRows(postReturningCols).AddRow(postRow(postID, owner, "resolved")...))

	post, err := repo.UpdateStatus(context.Background(), postID, owner, model.PostStatusResolved)
	require.NoError(t, err)
	assert.Equal(t, model.PostStatusResolved, post.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_UpdateStatus_ForeignPost(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE posts SET status = $1`)).
		WillReturnRows(sqlmock.NewRows(postReturningCols))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := repo.UpdateStatus(context.Background(), uuid.New(), uuid.New(), model.PostStatusActive)
	assert.ErrorIs(t, err, model.ErrNotPostOwner)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_GetByIDs_PreservesInputOrder(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	a, b, missing := uuid.New(), uuid.New(), uuid.New()
	owner := uuid.New()

	rowA := append(postRow(a, owner, "active"), owner.String(), "Ana", nil)
	rowB := append(postRow(b, owner, "active"), owner.String(), nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE p.id = ANY($1)`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(postJoinedCols).AddRow(rowA...).AddRow(rowB...))

	posts, err := repo.GetByIDs(context.Background(), []uuid.UUID{b, missing, a})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, b, posts[0].ID)
	assert.Equal(t, a, posts[1].ID)
	require.NotNil(t, posts[1].Owner)
	assert.Equal(t, "Ana", posts[1].Owner.NameOr(""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_GetByIDs_Empty(t *testing.T) {
	db, _ := setupMockDB(t)
	posts, err := NewPostRepository(db).GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

// =============================================================================
// CLAIM REPOSITORY
// =============================================================================

func TestClaimRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewClaimRepository(db)
	claim := &model.Claim{PostID: uuid.New(), ClaimerID: uuid.New(), Message: "I found this item!"}
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO claims (post_id, claimer_id, message)`)).
		WithArgs(claim.PostID, claim.ClaimerID, claim.Message).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(id.String(), time.Now()))

	require.NoError(t, repo.Create(context.Background(), claim))
	assert.Equal(t, id, claim.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimRepository_Create_DuplicateMapsToAlreadyClaimed(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewClaimRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO claims`)).
		WillReturnError(&pq.Error{Code: "23505", Constraint: model.ClaimUniqueConstraint})

	err := repo.Create(context.Background(), &model.Claim{PostID: uuid.New(), ClaimerID: uuid.New()})
	assert.ErrorIs(t, err, model.ErrAlreadyClaimed)
}

func TestClaimRepository_Create_OtherErrorsPassThrough(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewClaimRepository(db)

	// unique violation on some other constraint is not a duplicate claim
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO claims`)).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "claims_pkey"})
	err := repo.Create(context.Background(), &model.Claim{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrAlreadyClaimed)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO claims`)).
		WillReturnError(&pq.Error{Code: "23503", Constraint: "claims_post_id_fkey"})
	err = repo.Create(context.Background(), &model.Claim{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrAlreadyClaimed)
}

func TestClaimRepository_CountByPostIDs(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewClaimRepository(db)
	a, b := uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM claims`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"post_id", "count"}).AddRow(a.String(), 3))

	counts, err := repo.CountByPostIDs(context.Background(), []uuid.UUID{a, b})
	require.NoError(t, err)
	assert.Equal(t, 3, counts[a])
	assert.Equal(t, 0, counts[b])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimRepository_ClaimedPostIDs(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewClaimRepository(db)
	claimer, a, b := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT post_id FROM claims WHERE claimer_id = $1 AND post_id = ANY($2)`)).
		WithArgs(claimer, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"post_id"}).AddRow(b.String()))

	claimed, err := repo.ClaimedPostIDs(context.Background(), claimer, []uuid.UUID{a, b})
	require.NoError(t, err)
	assert.False(t, claimed[a])
	assert.True(t, claimed[b])
}

func TestClaimRepository_RecentOnOwnerPosts(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewClaimRepository(db)
	owner := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE p.user_id = $1`)).
		WithArgs(owner, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id", "post_title", "actor_id", "actor_name", "created_at"}).
			AddRow(uuid.NewString(), uuid.NewString(), "Keys", uuid.NewString(), nil, time.Now()))

	rows, err := repo.RecentOnOwnerPosts(context.Background(), owner, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].ActorName)
	assert.Equal(t, "Keys", rows[0].PostTitle)
}

// =============================================================================
// COMMENT REPOSITORY
// =============================================================================

func TestCommentRepository_Create_IncrementsCountInTransaction(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)
	c := &model.Comment{PostID: uuid.New(), UserID: uuid.New(), Content: "Is it still there?"}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO comments (post_id, user_id, content)`)).
		WithArgs(c.PostID, c.UserID, c.Content).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(uuid.NewString(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE posts SET comment_count = comment_count + 1`)).
		WithArgs(c.PostID).
		WillReturnRows(sqlmock.NewRows([]string{"comment_count"}).AddRow(4))
	mock.ExpectCommit()

	count, err := repo.Create(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.NotEqual(t, uuid.Nil, c.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_Create_RollsBackOnCountFailure(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO comments`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(uuid.NewString(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE posts SET comment_count`)).
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), &model.Comment{PostID: uuid.New(), UserID: uuid.New(), Content: "hi"})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_ListByPost(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)
	postID, author := uuid.New(), uuid.New()
	earlier := time.Now().Add(-time.Minute)

	cols := []string{"id", "post_id", "user_id", "content", "created_at", "author.id", "author.full_name", "author.avatar_url"}
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY c.created_at ASC`)).
		WithArgs(postID).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(uuid.NewString(), postID.String(), author.String(), "first", earlier, author.String(), "Sam", nil).
			AddRow(uuid.NewString(), postID.String(), author.String(), "second", time.Now(), author.String(), "Sam", nil))

	comments, err := repo.ListByPost(context.Background(), postID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Content)
	require.NotNil(t, comments[0].Author)
	assert.Equal(t, "Sam", *comments[0].Author.FullName)
}

// =============================================================================
// USER REPOSITORY
// =============================================================================

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs("sam@campus.edu", "hash", nil, nil).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	err := repo.Create(context.Background(), &model.User{Email: "  Sam@Campus.edu ", PasswordHashed: "hash"})
	assert.ErrorIs(t, err, model.ErrEmailExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmail_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE email = $1`)).
		WithArgs("nobody@campus.edu").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByEmail(context.Background(), "Nobody@campus.edu")
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

// =============================================================================
// REFRESH TOKEN REPOSITORY
// =============================================================================

func TestRefreshTokenRepository_Rotate(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRefreshTokenRepository(db)
	currentID, nextID, family, user := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	agent := "phone"
	next := &model.RefreshToken{FamilyID: family, UserID: user, TokenHash: "h2", UserAgent: &agent, ExpiresAt: time.Now().Add(time.Hour)}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO refresh_tokens`)).
		WithArgs(family, user, "h2", "phone", nil, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(nextID.String(), time.Now()))
	mock.ExpectExec(regexp.QuoteMeta(`WHERE id = $1 AND revoked_at IS NULL`)).
		WithArgs(currentID, nextID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Rotate(context.Background(), currentID, next))
	assert.Equal(t, nextID, next.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_Rotate_RetiredTokenRollsBack(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRefreshTokenRepository(db)
	currentID, nextID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO refresh_tokens`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(nextID.String(), time.Now()))
	mock.ExpectExec(regexp.QuoteMeta(`WHERE id = $1 AND revoked_at IS NULL`)).
		WithArgs(currentID, nextID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Rotate(context.Background(), currentID, &model.RefreshToken{TokenHash: "h2"})
	assert.ErrorIs(t, err, model.ErrRefreshTokenReused)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_RevokeFamily(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRefreshTokenRepository(db)
	family := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta(`WHERE family_id = $1 AND revoked_at IS NULL`)).
		WithArgs(family).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.RevokeFamily(context.Background(), family)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestRefreshTokenRepository_FindByTokenHash_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRefreshTokenRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM refresh_tokens WHERE token_hash = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByTokenHash(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrRefreshTokenNotFound)
}
