package posts

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/afnews/backend/internal/ledger"
	"github.com/afnews/backend/internal/models"
	"github.com/afnews/backend/internal/rewards"
)

type mockPosts struct {
	mu    sync.Mutex
	posts map[uuid.UUID]*models.Post
}

func newMockPosts() *mockPosts {
	return &mockPosts{posts: make(map[uuid.UUID]*models.Post)}
}

func (m *mockPosts) Create(_ context.Context, p *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.posts[p.ID] = &cp
	return nil
}

func (m *mockPosts) GetByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (m *mockPosts) ListByStatus(_ context.Context, status string) ([]*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []*models.Post
	for _, p := range m.posts {
		if p.Status == status {
			cp := *p
			list = append(list, &cp)
		}
	}
	return list, nil
}

func (m *mockPosts) Transition(_ context.Context, id uuid.UUID, status string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok || p.Status != models.PostPending {
		return uuid.Nil, pgx.ErrNoRows
	}
	p.Status = status
	return p.AuthorID, nil
}

type mockComments struct {
	mu       sync.Mutex
	comments []*models.Comment
}

func (m *mockComments) Create(_ context.Context, c *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.comments = append(m.comments, &cp)
	return nil
}

func (m *mockComments) ListByPostID(_ context.Context, postID uuid.UUID) ([]*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []*models.Comment
	for _, c := range m.comments {
		if c.PostID == postID {
			cp := *c
			list = append(list, &cp)
		}
	}
	return list, nil
}

// mockLedger mimics the real guard: per-post rewards are claimable once per
// user, and every grant is recorded.
type mockLedger struct {
	mu      sync.Mutex
	claimed map[string]bool
	grants  []string
}

func newMockLedger() *mockLedger {
	return &mockLedger{claimed: make(map[string]bool)}
}

func (m *mockLedger) GrantReward(_ context.Context, userID uuid.UUID, typ rewards.Type, refID string) (*ledger.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := fmt.Sprintf("%s|%s|%s", userID, typ, refID)
	if typ != rewards.PostApproved && m.claimed[key] {
		return nil, rewards.ErrAlreadyClaimed
	}
	m.claimed[key] = true
	m.grants = append(m.grants, key)
	return &ledger.Result{Amount: decimal.NewFromInt(1)}, nil
}

func (m *mockLedger) AdjustFunds(context.Context, uuid.UUID, decimal.Decimal, string) error {
	return nil
}

func (m *mockLedger) AwardReferralBonus(context.Context, uuid.UUID, string) error {
	return nil
}

func seedPost(t *testing.T, store *mockPosts, status string) *models.Post {
	t.Helper()
	p := &models.Post{
		ID:         uuid.New(),
		Title:      "Budget passes second reading",
		Category:   models.CategoryPolitics,
		Content:    "The finance bill cleared committee stage today.",
		AuthorID:   uuid.New(),
		AuthorName: "chanda",
		Status:     status,
	}
	require.NoError(t, store.Create(context.Background(), p))
	return p
}

func TestSubmitStartsPending(t *testing.T) {
	store := newMockPosts()
	svc := NewService(store, &mockComments{}, newMockLedger())

	p, err := svc.Submit(context.Background(), SubmitInput{
		Title:      "Kickoff delayed",
		Category:   models.CategorySports,
		Content:    "Heavy rain pushed the match back an hour.",
		AuthorID:   uuid.New(),
		AuthorName: "mutale",
	})
	require.NoError(t, err)
	require.Equal(t, models.PostPending, p.Status)

	approved, err := svc.ListApproved(context.Background())
	require.NoError(t, err)
	require.Empty(t, approved)
}

func TestSubmitRejectsUnknownCategory(t *testing.T) {
	svc := NewService(newMockPosts(), &mockComments{}, newMockLedger())

	_, err := svc.Submit(context.Background(), SubmitInput{
		Title:    "t",
		Category: "Gossip",
		Content:  "c",
		AuthorID: uuid.New(),
	})
	require.ErrorIs(t, err, ErrInvalidPost)
}

func TestApprovePaysAuthorExactlyOnce(t *testing.T) {
	store := newMockPosts()
	led := newMockLedger()
	svc := NewService(store, &mockComments{}, led)
	p := seedPost(t, store, models.PostPending)

	require.NoError(t, svc.Moderate(context.Background(), p.ID, true))
	require.Len(t, led.grants, 1)
	require.Contains(t, led.grants[0], string(rewards.PostApproved))

	// A second approval attempt fails before any reward is considered.
	err := svc.Moderate(context.Background(), p.ID, true)
	require.ErrorIs(t, err, ErrNotModeratable)
	require.Len(t, led.grants, 1)
}

func TestRejectPaysNothing(t *testing.T) {
	store := newMockPosts()
	led := newMockLedger()
	svc := NewService(store, &mockComments{}, led)
	p := seedPost(t, store, models.PostPending)

	require.NoError(t, svc.Moderate(context.Background(), p.ID, false))
	require.Empty(t, led.grants)

	got, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, models.PostRejected, got.Status)
}

func TestClaimReadRequiresApprovedPost(t *testing.T) {
	store := newMockPosts()
	led := newMockLedger()
	svc := NewService(store, &mockComments{}, led)
	reader := uuid.New()

	pending := seedPost(t, store, models.PostPending)
	_, err := svc.ClaimRead(context.Background(), reader, pending.ID)
	require.ErrorIs(t, err, ErrPostNotFound)

	approved := seedPost(t, store, models.PostApproved)
	res, err := svc.ClaimRead(context.Background(), reader, approved.ID)
	require.NoError(t, err)
	require.NotNil(t, res)

	_, err = svc.ClaimRead(context.Background(), reader, approved.ID)
	require.ErrorIs(t, err, rewards.ErrAlreadyClaimed)
}

func TestCommentRewardOnlyOnFirstComment(t *testing.T) {
	store := newMockPosts()
	comments := &mockComments{}
	led := newMockLedger()
	svc := NewService(store, comments, led)
	p := seedPost(t, store, models.PostApproved)
	reader := uuid.New()

	c1, res1, err := svc.AddComment(context.Background(), reader, "bwalya", p.ID, "Great reporting.")
	require.NoError(t, err)
	require.NotNil(t, c1)
	require.NotNil(t, res1)

	// The second comment still posts, but without a reward.
	c2, res2, err := svc.AddComment(context.Background(), reader, "bwalya", p.ID, "One more thing.")
	require.NoError(t, err)
	require.NotNil(t, c2)
	require.Nil(t, res2)

	list, err := svc.ListComments(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Len(t, led.grants, 1)
}
