package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/afnews/backend/internal/config"
	"github.com/afnews/backend/internal/metrics"
	"github.com/afnews/backend/internal/models"
	"github.com/afnews/backend/internal/rewards"
)

// ErrUserNotFound is returned when the target user id is unknown.
var ErrUserNotFound = errors.New("user not found")

// UserStore is the minimal user repository interface the ledger needs. All
// mutating methods run inside the caller-supplied transaction.
type UserStore interface {
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.User, error)
	CreditActivity(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
	CreditReferralBonus(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	SetLastRewardDate(ctx context.Context, tx pgx.Tx, id uuid.UUID, date string) error
	MarkPostRead(ctx context.Context, tx pgx.Tx, id uuid.UUID, postID string) error
	MarkPostCommented(ctx context.Context, tx pgx.Tx, id uuid.UUID, postID string) error
}

// TransactionStore appends ledger entries.
type TransactionStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
}

// TxBeginner starts database transactions; satisfied by *pgxpool.Pool and the
// user repository.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Result reports a successful reward grant.
type Result struct {
	Amount     decimal.Decimal `json:"amount"`
	NewBalance decimal.Decimal `json:"new_balance"`
	Message    string          `json:"message"`
}

type Service interface {
	GrantReward(ctx context.Context, userID uuid.UUID, typ rewards.Type, refID string) (*Result, error)
	AdjustFunds(ctx context.Context, userID uuid.UUID, delta decimal.Decimal, reason string) error
	AwardReferralBonus(ctx context.Context, referrerID uuid.UUID, newUserName string) error
}

type service struct {
	db      TxBeginner
	users   UserStore
	txs     TransactionStore
	amounts config.Rewards
	today   func() string
}

// NewService creates a ledger service. The reward amounts come from config so
// deployments can tune them without a rebuild.
func NewService(db TxBeginner, users UserStore, txs TransactionStore, amounts config.Rewards) *service {
	return &service{db: db, users: users, txs: txs, amounts: amounts, today: rewards.Today}
}

var _ Service = (*service)(nil)

// GrantReward evaluates the eligibility guard against a locked user snapshot
// and, if allowed, applies the claim marker, credits the activity balance and
// appends the EARN entry. Everything commits or rolls back together.
func (s *service) GrantReward(ctx context.Context, userID uuid.UUID, typ rewards.Type, refID string) (*Result, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin grant: %w", err)
	}
	defer tx.Rollback(ctx)

	u, err := s.users.GetForUpdate(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	decision, err := rewards.Evaluate(u, typ, refID, s.today(), s.amounts)
	if err != nil {
		return nil, err
	}

	switch {
	case decision.SetLastRewardDate != "":
		err = s.users.SetLastRewardDate(ctx, tx, userID, decision.SetLastRewardDate)
	case decision.MarkRead != "":
		err = s.users.MarkPostRead(ctx, tx, userID, decision.MarkRead)
	case decision.MarkCommented != "":
		err = s.users.MarkPostCommented(ctx, tx, userID, decision.MarkCommented)
	}
	if err != nil {
		return nil, fmt.Errorf("mark claim: %w", err)
	}

	newBalance, err := s.users.CreditActivity(ctx, tx, userID, decision.Amount)
	if err != nil {
		return nil, fmt.Errorf("credit activity: %w", err)
	}

	description := fmt.Sprintf("%s Reward", typ)
	if refID != "" {
		description = fmt.Sprintf("%s Reward (ID: %s)", typ, refID)
	}
	if err := s.txs.CreateTx(ctx, tx, &models.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      decision.Amount,
		Type:        models.TxEarn,
		Description: description,
	}); err != nil {
		return nil, fmt.Errorf("append earn entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit grant: %w", err)
	}
	metrics.RewardsGranted.WithLabelValues(string(typ)).Inc()
	return &Result{
		Amount:     decision.Amount,
		NewBalance: newBalance,
		Message:    fmt.Sprintf("Earned K%s", decision.Amount.StringFixed(2)),
	}, nil
}

// AdjustFunds applies an arbitrary signed delta to the activity balance and
// logs an ADJUSTMENT entry with the given reason. No floor is enforced:
// administrators may deliberately drive a balance negative.
func (s *service) AdjustFunds(ctx context.Context, userID uuid.UUID, delta decimal.Decimal, reason string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin adjust: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := s.users.CreditActivity(ctx, tx, userID, delta); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("adjust activity: %w", err)
	}
	if err := s.txs.CreateTx(ctx, tx, &models.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      delta,
		Type:        models.TxAdjustment,
		Description: reason,
	}); err != nil {
		return fmt.Errorf("append adjustment entry: %w", err)
	}
	return tx.Commit(ctx)
}

// AwardReferralBonus credits the referrer's referral balance, bumps their
// referral count and appends the REFERRAL_BONUS entry against the referrer's
// id (not the new user's).
func (s *service) AwardReferralBonus(ctx context.Context, referrerID uuid.UUID, newUserName string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin referral bonus: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := s.users.CreditReferralBonus(ctx, tx, referrerID, s.amounts.ReferralBonus); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("credit referral: %w", err)
	}
	if err := s.txs.CreateTx(ctx, tx, &models.Transaction{
		ID:          uuid.New(),
		UserID:      referrerID,
		Amount:      s.amounts.ReferralBonus,
		Type:        models.TxReferralBonus,
		Description: fmt.Sprintf("Referral Bonus for inviting %s", newUserName),
	}); err != nil {
		return fmt.Errorf("append referral entry: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	metrics.ReferralBonuses.Inc()
	return nil
}
