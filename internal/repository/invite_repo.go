package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/afnews/backend/internal/models"
)

type InviteRepo struct {
	pool *pgxpool.Pool
}

func NewInviteRepo(pool *pgxpool.Pool) *InviteRepo {
	return &InviteRepo{pool: pool}
}

func (r *InviteRepo) Create(ctx context.Context, c *models.InviteCode) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO invite_codes (id, code, created_by, used)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, c.ID, c.Code, c.CreatedBy, c.Used).Scan(&c.CreatedAt)
}

// RedeemTx marks an unused invite code as used inside tx. Returns
// pgx.ErrNoRows if the code does not exist or was already redeemed.
func (r *InviteRepo) RedeemTx(ctx context.Context, tx pgx.Tx, code string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE invite_codes SET used = TRUE WHERE code = $1 AND used = FALSE
	`, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *InviteRepo) List(ctx context.Context) ([]*models.InviteCode, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, code, created_by, used, created_at FROM invite_codes ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.InviteCode
	for rows.Next() {
		var c models.InviteCode
		if err := rows.Scan(&c.ID, &c.Code, &c.CreatedBy, &c.Used, &c.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}

type AnnouncementRepo struct {
	pool *pgxpool.Pool
}

func NewAnnouncementRepo(pool *pgxpool.Pool) *AnnouncementRepo {
	return &AnnouncementRepo{pool: pool}
}

func (r *AnnouncementRepo) Upsert(ctx context.Context, a *models.Announcement) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO announcements (id, text, active) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET text = EXCLUDED.text, active = EXCLUDED.active
	`, a.ID, a.Text, a.Active)
	return err
}

func (r *AnnouncementRepo) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	return err
}

func (r *AnnouncementRepo) List(ctx context.Context, activeOnly bool) ([]*models.Announcement, error) {
	query := `SELECT id, text, active FROM announcements`
	if activeOnly {
		query += ` WHERE active`
	}
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Announcement
	for rows.Next() {
		var a models.Announcement
		if err := rows.Scan(&a.ID, &a.Text, &a.Active); err != nil {
			return nil, err
		}
		list = append(list, &a)
	}
	return list, rows.Err()
}
