package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/afnews/backend/internal/config"
	"github.com/afnews/backend/internal/models"
	"github.com/afnews/backend/internal/rewards"
)

// ---------------------------------------------------------------------------
// In-memory mocks for UserStore and TransactionStore.
// These let us test the real ledger rules without a database.
// ---------------------------------------------------------------------------

type noopTx struct{}

func (noopTx) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }
func (noopTx) Commit(context.Context) error          { return nil }
func (noopTx) Rollback(context.Context) error        { return nil }
func (noopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (noopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (noopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (noopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (noopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (noopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (noopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (noopTx) Conn() *pgx.Conn { return nil }

type mockDB struct{}

func (mockDB) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }

// ---

type mockUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newMockUsers(list ...*models.User) *mockUsers {
	m := &mockUsers{users: make(map[uuid.UUID]*models.User)}
	for _, u := range list {
		cp := *u
		m.users[u.ID] = &cp
	}
	return m
}

func (m *mockUsers) get(id uuid.UUID) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockUsers) GetForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(id)
	if err != nil {
		return nil, err
	}
	cp := *u
	return &cp, nil
}

func (m *mockUsers) CreditActivity(_ context.Context, _ pgx.Tx, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(id)
	if err != nil {
		return decimal.Zero, err
	}
	u.ActivityPoints = u.ActivityPoints.Add(delta)
	return u.ActivityPoints, nil
}

func (m *mockUsers) CreditReferralBonus(_ context.Context, _ pgx.Tx, id uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(id)
	if err != nil {
		return decimal.Zero, err
	}
	u.ReferralEarnings = u.ReferralEarnings.Add(amount)
	u.ReferralCount++
	return u.ReferralEarnings, nil
}

func (m *mockUsers) SetLastRewardDate(_ context.Context, _ pgx.Tx, id uuid.UUID, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(id)
	if err != nil {
		return err
	}
	u.LastRewardDate = date
	return nil
}

func (m *mockUsers) MarkPostRead(_ context.Context, _ pgx.Tx, id uuid.UUID, postID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(id)
	if err != nil {
		return err
	}
	if !u.HasRead(postID) {
		u.ReadPostIDs = append(u.ReadPostIDs, postID)
	}
	return nil
}

func (m *mockUsers) MarkPostCommented(_ context.Context, _ pgx.Tx, id uuid.UUID, postID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(id)
	if err != nil {
		return err
	}
	if !u.HasCommented(postID) {
		u.CommentedPostIDs = append(u.CommentedPostIDs, postID)
	}
	return nil
}

func (m *mockUsers) balance(id uuid.UUID) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id].ActivityPoints
}

// ---

type mockTxLog struct {
	mu      sync.Mutex
	entries []*models.Transaction
}

func (m *mockTxLog) CreateTx(_ context.Context, _ pgx.Tx, t *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *mockTxLog) byType(txType string) []*models.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Transaction
	for _, e := range m.entries {
		if e.Type == txType {
			out = append(out, e)
		}
	}
	return out
}

// ---------------------------------------------------------------------------

var testAmounts = config.Rewards{
	Daily:         decimal.NewFromFloat(5.00),
	Read:          decimal.NewFromFloat(0.20),
	Comment:       decimal.NewFromFloat(0.20),
	PostApproved:  decimal.NewFromFloat(10.00),
	ReferralBonus: decimal.NewFromFloat(50.00),
}

func newTestService(users *mockUsers, txs *mockTxLog) *service {
	svc := NewService(mockDB{}, users, txs, testAmounts)
	svc.today = func() string { return "2026-08-31" }
	return svc
}

func TestGrantReadRewardIdempotent(t *testing.T) {
	userID := uuid.New()
	users := newMockUsers(&models.User{ID: userID})
	txs := &mockTxLog{}
	svc := newTestService(users, txs)
	ctx := context.Background()

	res, err := svc.GrantReward(ctx, userID, rewards.Read, "A1")
	if err != nil {
		t.Fatalf("first READ claim: %v", err)
	}
	if !res.NewBalance.Equal(decimal.NewFromFloat(0.20)) {
		t.Errorf("balance after first claim: got %s, want 0.2", res.NewBalance)
	}

	// Second claim for the same article is rejected and changes nothing.
	if _, err := svc.GrantReward(ctx, userID, rewards.Read, "A1"); !errors.Is(err, rewards.ErrAlreadyClaimed) {
		t.Fatalf("second READ claim: got %v, want ErrAlreadyClaimed", err)
	}
	if got := users.balance(userID); !got.Equal(decimal.NewFromFloat(0.20)) {
		t.Errorf("balance after duplicate claim: got %s, want 0.2", got)
	}
	if n := len(txs.byType(models.TxEarn)); n != 1 {
		t.Errorf("EARN entries: got %d, want 1", n)
	}
}

func TestGrantDailyRewardOncePerDay(t *testing.T) {
	userID := uuid.New()
	users := newMockUsers(&models.User{ID: userID})
	txs := &mockTxLog{}
	svc := newTestService(users, txs)
	ctx := context.Background()

	if _, err := svc.GrantReward(ctx, userID, rewards.Daily, ""); err != nil {
		t.Fatalf("first DAILY claim: %v", err)
	}
	if _, err := svc.GrantReward(ctx, userID, rewards.Daily, ""); !errors.Is(err, rewards.ErrAlreadyClaimed) {
		t.Fatalf("same-day DAILY claim: got %v, want ErrAlreadyClaimed", err)
	}

	// Next day succeeds again.
	svc.today = func() string { return "2026-09-01" }
	if _, err := svc.GrantReward(ctx, userID, rewards.Daily, ""); err != nil {
		t.Fatalf("next-day DAILY claim: %v", err)
	}
	if got := users.balance(userID); !got.Equal(decimal.NewFromInt(10)) {
		t.Errorf("balance after two daily claims: got %s, want 10", got)
	}
	if n := len(txs.byType(models.TxEarn)); n != 2 {
		t.Errorf("EARN entries: got %d, want 2", n)
	}
}

func TestGrantRewardUnknownUser(t *testing.T) {
	svc := newTestService(newMockUsers(), &mockTxLog{})
	if _, err := svc.GrantReward(context.Background(), uuid.New(), rewards.Read, "A1"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("grant to unknown user: got %v, want ErrUserNotFound", err)
	}
}

func TestAdjustFundsRoundTrip(t *testing.T) {
	userID := uuid.New()
	start := decimal.NewFromFloat(12.34)
	users := newMockUsers(&models.User{ID: userID, ActivityPoints: start})
	txs := &mockTxLog{}
	svc := newTestService(users, txs)
	ctx := context.Background()

	if err := svc.AdjustFunds(ctx, userID, decimal.NewFromInt(50), "bonus"); err != nil {
		t.Fatalf("credit adjustment: %v", err)
	}
	if err := svc.AdjustFunds(ctx, userID, decimal.NewFromInt(-50), "reversal"); err != nil {
		t.Fatalf("debit adjustment: %v", err)
	}

	if got := users.balance(userID); !got.Equal(start) {
		t.Errorf("balance after round trip: got %s, want %s", got, start)
	}
	adjustments := txs.byType(models.TxAdjustment)
	if len(adjustments) != 2 {
		t.Fatalf("ADJUSTMENT entries: got %d, want 2", len(adjustments))
	}
	sum := adjustments[0].Amount.Add(adjustments[1].Amount)
	if !sum.IsZero() {
		t.Errorf("adjustment entries should sum to zero, got %s", sum)
	}
}

func TestAdjustFundsAllowsNegativeBalance(t *testing.T) {
	userID := uuid.New()
	users := newMockUsers(&models.User{ID: userID, ActivityPoints: decimal.NewFromInt(10)})
	svc := newTestService(users, &mockTxLog{})

	// Penalties may drive the balance below zero; the service imposes no floor.
	if err := svc.AdjustFunds(context.Background(), userID, decimal.NewFromInt(-25), "penalty"); err != nil {
		t.Fatalf("penalty adjustment: %v", err)
	}
	if got := users.balance(userID); !got.Equal(decimal.NewFromInt(-15)) {
		t.Errorf("balance after penalty: got %s, want -15", got)
	}
}

func TestAdjustFundsUnknownUser(t *testing.T) {
	svc := newTestService(newMockUsers(), &mockTxLog{})
	if err := svc.AdjustFunds(context.Background(), uuid.New(), decimal.NewFromInt(5), "x"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("adjust unknown user: got %v, want ErrUserNotFound", err)
	}
}

func TestAwardReferralBonus(t *testing.T) {
	referrerID := uuid.New()
	users := newMockUsers(&models.User{ID: referrerID})
	txs := &mockTxLog{}
	svc := newTestService(users, txs)

	if err := svc.AwardReferralBonus(context.Background(), referrerID, "Jane Phiri"); err != nil {
		t.Fatalf("award referral bonus: %v", err)
	}

	users.mu.Lock()
	referrer := users.users[referrerID]
	users.mu.Unlock()
	if !referrer.ReferralEarnings.Equal(decimal.NewFromInt(50)) {
		t.Errorf("referral earnings: got %s, want 50", referrer.ReferralEarnings)
	}
	if referrer.ReferralCount != 1 {
		t.Errorf("referral count: got %d, want 1", referrer.ReferralCount)
	}
	// Activity balance is untouched by referral bonuses.
	if !referrer.ActivityPoints.IsZero() {
		t.Errorf("activity points: got %s, want 0", referrer.ActivityPoints)
	}

	bonuses := txs.byType(models.TxReferralBonus)
	if len(bonuses) != 1 {
		t.Fatalf("REFERRAL_BONUS entries: got %d, want 1", len(bonuses))
	}
	if bonuses[0].UserID != referrerID {
		t.Errorf("bonus logged against %s, want referrer %s", bonuses[0].UserID, referrerID)
	}
}

// Full scenario: read, duplicate read, comment, promo adjustment — the running
// balance and the audit trail must agree at every step.
func TestActivityScenario(t *testing.T) {
	userID := uuid.New()
	users := newMockUsers(&models.User{ID: userID})
	txs := &mockTxLog{}
	svc := newTestService(users, txs)
	ctx := context.Background()

	if _, err := svc.GrantReward(ctx, userID, rewards.Read, "A1"); err != nil {
		t.Fatalf("READ A1: %v", err)
	}
	if _, err := svc.GrantReward(ctx, userID, rewards.Read, "A1"); !errors.Is(err, rewards.ErrAlreadyClaimed) {
		t.Fatalf("duplicate READ A1: got %v", err)
	}
	if _, err := svc.GrantReward(ctx, userID, rewards.Comment, "A1"); err != nil {
		t.Fatalf("COMMENT A1: %v", err)
	}
	if got := users.balance(userID); !got.Equal(decimal.NewFromFloat(0.40)) {
		t.Fatalf("balance after read+comment: got %s, want 0.4", got)
	}

	if err := svc.AdjustFunds(ctx, userID, decimal.NewFromInt(1000), "promo"); err != nil {
		t.Fatalf("promo adjustment: %v", err)
	}
	if got := users.balance(userID); !got.Equal(decimal.NewFromFloat(1000.40)) {
		t.Fatalf("balance after promo: got %s, want 1000.4", got)
	}

	// Ledger sum equals the balance delta.
	var sum decimal.Decimal
	txs.mu.Lock()
	for _, e := range txs.entries {
		sum = sum.Add(e.Amount)
	}
	txs.mu.Unlock()
	if !sum.Equal(users.balance(userID)) {
		t.Errorf("ledger sum %s does not match balance %s", sum, users.balance(userID))
	}
}
