package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/afnews/backend/internal/models"
)

type WithdrawalRepo struct {
	pool *pgxpool.Pool
}

func NewWithdrawalRepo(pool *pgxpool.Pool) *WithdrawalRepo {
	return &WithdrawalRepo{pool: pool}
}

// Begin starts a transaction on the underlying pool.
func (r *WithdrawalRepo) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// CreateTx inserts a withdrawal inside the given transaction so the Pending
// row commits together with the optimistic balance deduction.
func (r *WithdrawalRepo) CreateTx(ctx context.Context, tx pgx.Tx, w *models.Withdrawal) error {
	return tx.QueryRow(ctx, `
		INSERT INTO withdrawals (id, user_id, username, amount, source, details, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, w.ID, w.UserID, w.Username, w.Amount, w.Source, w.Details, w.Status).Scan(&w.CreatedAt)
}

// GetForUpdate locks the withdrawal row. Call within a transaction.
func (r *WithdrawalRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Withdrawal, error) {
	var w models.Withdrawal
	err := tx.QueryRow(ctx, `
		SELECT id, user_id, username, amount, source, details, status, created_at
		FROM withdrawals WHERE id = $1 FOR UPDATE
	`, id).Scan(&w.ID, &w.UserID, &w.Username, &w.Amount, &w.Source, &w.Details, &w.Status, &w.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ResolveTx transitions a Pending withdrawal to its terminal status and
// appends the annotation to its details. Returns pgx.ErrNoRows if the row is
// no longer Pending, which guards against double-processing.
func (r *WithdrawalRepo) ResolveTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status, annotation string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE withdrawals SET details = details || $3, status = $2
		WHERE id = $1 AND status = $4
	`, id, status, annotation, models.WithdrawalPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *WithdrawalRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Withdrawal, error) {
	return r.list(ctx, `WHERE user_id = $1`, userID)
}

func (r *WithdrawalRepo) List(ctx context.Context) ([]*models.Withdrawal, error) {
	return r.list(ctx, ``)
}

func (r *WithdrawalRepo) list(ctx context.Context, where string, args ...any) ([]*models.Withdrawal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, username, amount, source, details, status, created_at
		FROM withdrawals `+where+` ORDER BY created_at DESC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Withdrawal
	for rows.Next() {
		var w models.Withdrawal
		if err := rows.Scan(&w.ID, &w.UserID, &w.Username, &w.Amount, &w.Source, &w.Details, &w.Status, &w.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &w)
	}
	return list, rows.Err()
}
