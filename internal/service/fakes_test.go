package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"lostfound/internal/cache"
	"lostfound/internal/model"
	"lostfound/internal/queue"
)

// =============================================================================
// IN-MEMORY STORE
// =============================================================================

// memStore backs the in-memory repositories. Every write advances the clock
// by one second so ordering by CreatedAt is deterministic.
type memStore struct {
	mu       sync.Mutex
	clock    time.Time
	users    map[uuid.UUID]*model.User
	posts    []*model.Post
	claims   []model.Claim
	comments []model.Comment
	tokens   map[string]*model.RefreshToken

	failPostCreate error
	failCountReads error
}

func newMemStore() *memStore {
	return &memStore{
		clock:  time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC),
		users:  make(map[uuid.UUID]*model.User),
		tokens: make(map[string]*model.RefreshToken),
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) addUser(name string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	u := &model.User{ID: id, Email: id.String() + "@campus.edu", CreatedAt: m.tick()}
	if name != "" {
		u.FullName = &name
	}
	m.users[id] = u
	return id
}

func (m *memStore) findPost(id uuid.UUID) (int, *model.Post) {
	for i, p := range m.posts {
		if p.ID == id {
			return i, p
		}
	}
	return -1, nil
}

// hydrate copies a post and joins its owner's profile.
func (m *memStore) hydrate(p *model.Post) model.Post {
	out := *p
	if u, ok := m.users[p.UserID]; ok {
		out.Owner = u.Profile()
	}
	return out
}

func (m *memStore) actorName(id uuid.UUID) *string {
	if u, ok := m.users[id]; ok {
		return u.FullName
	}
	return nil
}

func (m *memStore) claimCount(postID uuid.UUID) int {
	n := 0
	for _, c := range m.claims {
		if c.PostID == postID {
			n++
		}
	}
	return n
}

func (m *memStore) commentCount(postID uuid.UUID) int {
	n := 0
	for _, c := range m.comments {
		if c.PostID == postID {
			n++
		}
	}
	return n
}

func newestFirst(rows []model.ActivityRow, limit int) []model.ActivityRow {
	slices.SortStableFunc(rows, func(a, b model.ActivityRow) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

// =============================================================================
// USERS
// =============================================================================

type memUsers struct{ *memStore }

func (r memUsers) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return model.ErrEmailExists
		}
	}
	user.ID = uuid.New()
	user.CreatedAt = r.tick()
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r memUsers) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (r memUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, model.ErrUserNotFound
}

func (r memUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	return err == nil, nil
}

// =============================================================================
// REFRESH TOKENS
// =============================================================================

type memTokens struct{ *memStore }

func (r memTokens) Create(ctx context.Context, token *model.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertToken(token)
	return nil
}

func (r memTokens) insertToken(token *model.RefreshToken) {
	token.ID = uuid.New()
	token.CreatedAt = r.tick()
	stored := *token
	r.tokens[token.TokenHash] = &stored
}

func (r memTokens) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[tokenHash]
	if !ok {
		return nil, model.ErrRefreshTokenNotFound
	}
	out := *t
	return &out, nil
}

func (r memTokens) Rotate(ctx context.Context, currentID uuid.UUID, next *model.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current := r.tokenByID(currentID)
	if current == nil || current.RevokedAt != nil {
		return model.ErrRefreshTokenReused
	}
	r.insertToken(next)
	now := r.tick()
	nextID := next.ID
	current.RevokedAt = &now
	current.ReplacedBy = &nextID
	return nil
}

func (r memTokens) Revoke(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t := r.tokenByID(id); t != nil && t.RevokedAt == nil {
		now := r.tick()
		t.RevokedAt = &now
	}
	return nil
}

func (r memTokens) RevokeFamily(ctx context.Context, familyID uuid.UUID) (int64, error) {
	return r.revokeWhere(func(t *model.RefreshToken) bool { return t.FamilyID == familyID }), nil
}

func (r memTokens) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return r.revokeWhere(func(t *model.RefreshToken) bool { return t.UserID == userID }), nil
}

func (r memTokens) revokeWhere(match func(*model.RefreshToken) bool) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.tick()
	var n int64
	for _, t := range r.tokens {
		if match(t) && t.RevokedAt == nil {
			t.RevokedAt = &now
			n++
		}
	}
	return n
}

func (r memTokens) tokenByID(id uuid.UUID) *model.RefreshToken {
	for _, t := range r.tokens {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (r memTokens) DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	var n int64
	for hash, t := range r.tokens {
		if t.ExpiresAt.Before(cutoff) {
			delete(r.tokens, hash)
			n++
		}
	}
	return n, nil
}

// activeFor counts unrevoked tokens of a user.
func (r memTokens) activeFor(userID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			n++
		}
	}
	return n
}

// =============================================================================
// POSTS
// =============================================================================

type memPosts struct{ *memStore }

func (r memPosts) Create(ctx context.Context, np *model.NewPost) (*model.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failPostCreate != nil {
		return nil, r.failPostCreate
	}
	p := &model.Post{
		ID:          uuid.New(),
		UserID:      np.UserID,
		Type:        np.Type,
		Title:       np.Title,
		Category:    np.Category,
		Location:    np.Location,
		Description: np.Description,
		ImageURL:    np.ImageURL,
		ImageKey:    np.ImageKey,
		Status:      model.PostStatusActive,
		CreatedAt:   r.tick(),
	}
	r.posts = append(r.posts, p)
	out := r.hydrate(p)
	return &out, nil
}

func (r memPosts) GetByID(ctx context.Context, postID uuid.UUID) (*model.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, p := r.findPost(postID)
	if p == nil {
		return nil, model.ErrPostNotFound
	}
	out := r.hydrate(p)
	return &out, nil
}

func (r memPosts) GetByIDs(ctx context.Context, postIDs []uuid.UUID) ([]model.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Post, 0, len(postIDs))
	for _, id := range postIDs {
		if _, p := r.findPost(id); p != nil {
			out = append(out, r.hydrate(p))
		}
	}
	return out, nil
}

func (r memPosts) newest() []model.Post {
	out := make([]model.Post, 0, len(r.posts))
	for i := len(r.posts) - 1; i >= 0; i-- {
		out = append(out, r.hydrate(r.posts[i]))
	}
	return out
}

func (r memPosts) List(ctx context.Context) ([]model.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.newest(), nil
}

func (r memPosts) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Post
	for _, p := range r.newest() {
		if p.UserID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r memPosts) Scores(ctx context.Context) ([]cache.PostScore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []cache.PostScore
	for _, p := range r.newest() {
		out = append(out, cache.PostScore{PostID: p.ID, Timestamp: p.CreatedAt.UnixMicro()})
	}
	return out, nil
}

func (r memPosts) UpdateStatus(ctx context.Context, postID, ownerID uuid.UUID, status model.PostStatus) (*model.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, p := r.findPost(postID)
	if p == nil {
		return nil, model.ErrPostNotFound
	}
	if p.UserID != ownerID {
		return nil, model.ErrNotPostOwner
	}
	p.Status = status
	out := r.hydrate(p)
	return &out, nil
}

func (r memPosts) DeleteCascade(ctx context.Context, postID, ownerID uuid.UUID) (*model.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, p := r.findPost(postID)
	if p == nil {
		return nil, model.ErrPostNotFound
	}
	if p.UserID != ownerID {
		return nil, model.ErrNotPostOwner
	}
	r.claims = slices.DeleteFunc(r.claims, func(c model.Claim) bool { return c.PostID == postID })
	r.comments = slices.DeleteFunc(r.comments, func(c model.Comment) bool { return c.PostID == postID })
	r.posts = slices.Delete(r.posts, i, i+1)
	out := *p
	return &out, nil
}

// =============================================================================
// CLAIMS
// =============================================================================

type memClaims struct{ *memStore }

func (r memClaims) Create(ctx context.Context, claim *model.Claim) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.claims {
		if c.PostID == claim.PostID && c.ClaimerID == claim.ClaimerID {
			return model.ErrAlreadyClaimed
		}
	}
	claim.ID = uuid.New()
	claim.CreatedAt = r.tick()
	r.claims = append(r.claims, *claim)
	return nil
}

func (r memClaims) CountByPost(ctx context.Context, postID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.claimCount(postID), nil
}

func (r memClaims) CountByPostIDs(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCountReads != nil {
		return nil, r.failCountReads
	}
	out := make(map[uuid.UUID]int)
	for _, id := range postIDs {
		if n := r.claimCount(id); n > 0 {
			out[id] = n
		}
	}
	return out, nil
}

func (r memClaims) ClaimedPostIDs(ctx context.Context, claimerID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID]bool)
	for _, c := range r.claims {
		if c.ClaimerID == claimerID && slices.Contains(postIDs, c.PostID) {
			out[c.PostID] = true
		}
	}
	return out, nil
}

func (r memClaims) RecentOnOwnerPosts(ctx context.Context, ownerID uuid.UUID, limit int) ([]model.ActivityRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var rows []model.ActivityRow
	for _, c := range r.claims {
		_, p := r.findPost(c.PostID)
		if p == nil || p.UserID != ownerID {
			continue
		}
		rows = append(rows, model.ActivityRow{
			ID:        c.ID,
			PostID:    c.PostID,
			PostTitle: p.Title,
			ActorID:   c.ClaimerID,
			ActorName: r.actorName(c.ClaimerID),
			CreatedAt: c.CreatedAt,
		})
	}
	return newestFirst(rows, limit), nil
}

// =============================================================================
// COMMENTS
// =============================================================================

type memComments struct{ *memStore }

func (r memComments) Create(ctx context.Context, comment *model.Comment) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, p := r.findPost(comment.PostID)
	if p == nil {
		return 0, model.ErrPostNotFound
	}
	comment.ID = uuid.New()
	comment.CreatedAt = r.tick()
	r.comments = append(r.comments, *comment)
	p.StoredCommentCount++
	return p.StoredCommentCount, nil
}

func (r memComments) ListByPost(ctx context.Context, postID uuid.UUID) ([]model.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Comment
	for _, c := range r.comments {
		if c.PostID != postID {
			continue
		}
		if u, ok := r.users[c.UserID]; ok {
			c.Author = u.Profile()
		}
		out = append(out, c)
	}
	return out, nil
}

func (r memComments) CountByPostIDs(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCountReads != nil {
		return nil, r.failCountReads
	}
	out := make(map[uuid.UUID]int)
	for _, id := range postIDs {
		if n := r.commentCount(id); n > 0 {
			out[id] = n
		}
	}
	return out, nil
}

func (r memComments) RecentOnOwnerPosts(ctx context.Context, ownerID uuid.UUID, limit int) ([]model.ActivityRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var rows []model.ActivityRow
	for _, c := range r.comments {
		_, p := r.findPost(c.PostID)
		if p == nil || p.UserID != ownerID || c.UserID == ownerID {
			continue
		}
		rows = append(rows, model.ActivityRow{
			ID:        c.ID,
			PostID:    c.PostID,
			PostTitle: p.Title,
			ActorID:   c.UserID,
			ActorName: r.actorName(c.UserID),
			CreatedAt: c.CreatedAt,
		})
	}
	return newestFirst(rows, limit), nil
}

// =============================================================================
// IMAGE STORE / PUBLISHER
// =============================================================================

type fakeImageStore struct {
	mu        sync.Mutex
	uploadErr error
	uploaded  []string
	deleted   []string
}

func (f *fakeImageStore) UploadPostImage(ctx context.Context, ownerID uuid.UUID, img *model.ImageUpload) (*model.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	key := fmt.Sprintf("%s/%s", ownerID, img.Filename)
	f.uploaded = append(f.uploaded, key)
	return &model.UploadResult{URL: "https://cdn.test/" + key, Key: key}, nil
}

func (f *fakeImageStore) DeleteObject(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	err    error
	events []queue.ChangeEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event queue.ChangeEvent) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.events = append(p.events, event)
	return fmt.Sprintf("%d-0", len(p.events)), nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

var errStoreDown = errors.New("store unavailable")

// fixture wires every service over one in-memory store.
type fixture struct {
	store     *memStore
	users     memUsers
	posts     memPosts
	claims    memClaims
	comments  memComments
	images    *fakeImageStore
	publisher *recordingPublisher

	postSvc    *PostService
	claimSvc   *ClaimService
	commentSvc *CommentService
	feedSvc    *FeedService
	notifSvc   *NotificationService
}

const testBaseURL = "https://lostfound.test"

func newFixture() *fixture {
	store := newMemStore()
	f := &fixture{
		store:     store,
		users:     memUsers{store},
		posts:     memPosts{store},
		claims:    memClaims{store},
		comments:  memComments{store},
		images:    &fakeImageStore{},
		publisher: &recordingPublisher{},
	}
	f.postSvc = NewPostService(f.posts, f.claims, f.comments, f.images, f.publisher, nil, testBaseURL)
	f.claimSvc = NewClaimService(f.posts, f.claims, f.publisher)
	f.commentSvc = NewCommentService(f.posts, f.comments, f.users, f.publisher)
	f.feedSvc = NewFeedService(nil, f.posts, f.claims, f.comments, nil, testBaseURL)
	f.notifSvc = NewNotificationService(f.claims, f.comments)
	return f
}

func validDraft(t model.PostType, title string) *model.PostDraft {
	return &model.PostDraft{
		Type:        t,
		Title:       title,
		Category:    model.CategoryElectronics,
		Location:    "Library, 2nd floor",
		Description: "Black case with a sticker",
	}
}

// mustPost creates an active post owned by ownerID.
func (f *fixture) mustPost(ownerID uuid.UUID, t model.PostType, title string) *model.Post {
	post, err := f.postSvc.Create(context.Background(), model.ViewerFor(ownerID), validDraft(t, title), nil)
	if err != nil {
		panic(err)
	}
	return post
}
