package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/afnews/backend/internal/config"
	"github.com/afnews/backend/internal/metrics"
	"github.com/afnews/backend/internal/models"
)

var (
	// ErrInsufficientFunds is returned when the chosen balance cannot cover
	// the requested amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrValidation covers out-of-bounds amounts, unknown sources and
	// malformed payout details.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned for an unknown withdrawal id.
	ErrNotFound = errors.New("withdrawal not found")
	// ErrUserNotFound is returned when the submitting user id is unknown.
	ErrUserNotFound = errors.New("user not found")
	// ErrAlreadyResolved is returned when resolving a withdrawal that has
	// already left Pending. The caller must not treat this as success.
	ErrAlreadyResolved = errors.New("withdrawal already resolved")
)

// UserStore is the slice of the user repository the wallet needs.
type UserStore interface {
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.User, error)
	DebitSource(ctx context.Context, tx pgx.Tx, id uuid.UUID, source string, amount decimal.Decimal) (decimal.Decimal, error)
	CreditSource(ctx context.Context, tx pgx.Tx, id uuid.UUID, source string, amount decimal.Decimal) (decimal.Decimal, error)
	SaveBeneficiary(ctx context.Context, tx pgx.Tx, id uuid.UUID, b models.Beneficiary) error
}

// WithdrawalStore persists withdrawal rows.
type WithdrawalStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, w *models.Withdrawal) error
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Withdrawal, error)
	ResolveTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status, annotation string) error
}

// TransactionStore appends ledger entries.
type TransactionStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
}

// TxBeginner starts database transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Service interface {
	Submit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, source, details string, save *models.Beneficiary) (*models.Withdrawal, error)
	Resolve(ctx context.Context, withdrawalID uuid.UUID, decision string) error
}

type service struct {
	db          TxBeginner
	users       UserStore
	withdrawals WithdrawalStore
	txs         TransactionStore
	limits      config.Withdrawals
	now         func() time.Time
}

func NewService(db TxBeginner, users UserStore, withdrawals WithdrawalStore, txs TransactionStore, limits config.Withdrawals) *service {
	return &service{db: db, users: users, withdrawals: withdrawals, txs: txs, limits: limits, now: time.Now}
}

var _ Service = (*service)(nil)

func (s *service) minFor(source string) decimal.Decimal {
	if source == models.SourceReferral {
		return s.limits.MinReferral
	}
	return s.limits.MinActivity
}

// Submit deducts amount from the chosen balance immediately (funds are in
// flight from this moment), records a Pending withdrawal and appends the
// negative WITHDRAWAL entry — all in one transaction.
func (s *service) Submit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, source, details string, save *models.Beneficiary) (*models.Withdrawal, error) {
	if source != models.SourceActivity && source != models.SourceReferral {
		return nil, fmt.Errorf("%w: unknown source %q", ErrValidation, source)
	}
	if strings.TrimSpace(details) == "" {
		return nil, fmt.Errorf("%w: payout details are required", ErrValidation)
	}
	min := s.minFor(source)
	if amount.LessThan(min) || amount.GreaterThan(s.limits.Max) {
		return nil, fmt.Errorf("%w: amount must be between K%s and K%s for the %s balance",
			ErrValidation, min.StringFixed(0), s.limits.Max.StringFixed(0), source)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin withdrawal: %w", err)
	}
	defer tx.Rollback(ctx)

	u, err := s.users.GetForUpdate(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	balance := u.ActivityPoints
	if source == models.SourceReferral {
		balance = u.ReferralEarnings
	}
	if balance.LessThan(amount) {
		return nil, ErrInsufficientFunds
	}

	if save != nil {
		if err := s.users.SaveBeneficiary(ctx, tx, userID, *save); err != nil {
			return nil, fmt.Errorf("save beneficiary: %w", err)
		}
	}

	if _, err := s.users.DebitSource(ctx, tx, userID, source, amount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInsufficientFunds
		}
		return nil, fmt.Errorf("deduct balance: %w", err)
	}

	w := &models.Withdrawal{
		ID:       uuid.New(),
		UserID:   userID,
		Username: u.Username,
		Amount:   amount,
		Source:   source,
		Details:  details,
		Status:   models.WithdrawalPending,
	}
	if err := s.withdrawals.CreateTx(ctx, tx, w); err != nil {
		return nil, fmt.Errorf("create withdrawal: %w", err)
	}
	if err := s.txs.CreateTx(ctx, tx, &models.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      amount.Neg(),
		Type:        models.TxWithdrawal,
		Description: fmt.Sprintf("Withdrawal (%s): %s", source, details),
	}); err != nil {
		return nil, fmt.Errorf("append withdrawal entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit withdrawal: %w", err)
	}
	metrics.WithdrawalsSubmitted.WithLabelValues(source).Inc()
	return w, nil
}

// Resolve moves a Pending withdrawal to Paid or Rejected, exactly once. A
// rejection restores the funds to the balance they were deducted from and
// appends a compensating REFUND entry; Paid touches no balance because the
// funds already left at submission.
func (s *service) Resolve(ctx context.Context, withdrawalID uuid.UUID, decision string) error {
	if decision != models.WithdrawalPaid && decision != models.WithdrawalRejected {
		return fmt.Errorf("%w: decision must be %s or %s", ErrValidation, models.WithdrawalPaid, models.WithdrawalRejected)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin resolve: %w", err)
	}
	defer tx.Rollback(ctx)

	w, err := s.withdrawals.GetForUpdate(ctx, tx, withdrawalID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("load withdrawal: %w", err)
	}
	if w.Status != models.WithdrawalPending {
		return fmt.Errorf("%w: already %s", ErrAlreadyResolved, w.Status)
	}

	if decision == models.WithdrawalRejected {
		if _, err := s.users.CreditSource(ctx, tx, w.UserID, w.Source, w.Amount); err != nil {
			return fmt.Errorf("restore balance: %w", err)
		}
		if err := s.txs.CreateTx(ctx, tx, &models.Transaction{
			ID:          uuid.New(),
			UserID:      w.UserID,
			Amount:      w.Amount,
			Type:        models.TxRefund,
			Description: fmt.Sprintf("Refund for rejected withdrawal %s", w.ID),
		}); err != nil {
			return fmt.Errorf("append refund entry: %w", err)
		}
	}

	annotation := fmt.Sprintf(" [%s @ %s]", strings.ToUpper(decision), s.now().Format("2006-01-02 15:04:05"))
	if err := s.withdrawals.ResolveTx(ctx, tx, withdrawalID, decision, annotation); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAlreadyResolved
		}
		return fmt.Errorf("update withdrawal: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit resolve: %w", err)
	}
	metrics.WithdrawalsResolved.WithLabelValues(decision).Inc()
	return nil
}
