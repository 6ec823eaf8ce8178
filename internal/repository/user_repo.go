package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/afnews/backend/internal/models"
)

const userColumns = `id, username, email, phone_number, password_hash, activity_points,
	referral_earnings, referral_code, referral_count, invite_code_used, is_admin,
	last_reward_date, read_posts, commented_posts, saved_beneficiaries, created_at, updated_at`

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// Begin starts a transaction on the underlying pool.
func (r *UserRepo) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var beneficiaries []byte
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PhoneNumber, &u.PasswordHash,
		&u.ActivityPoints, &u.ReferralEarnings, &u.ReferralCode, &u.ReferralCount,
		&u.InviteCodeUsed, &u.IsAdmin, &u.LastRewardDate, &u.ReadPostIDs,
		&u.CommentedPostIDs, &beneficiaries, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(beneficiaries) > 0 {
		if err := json.Unmarshal(beneficiaries, &u.SavedBeneficiaries); err != nil {
			return nil, err
		}
	}
	return &u, nil
}

// CreateTx inserts a new user inside the given transaction so invite-code
// redemption and account creation commit together.
func (r *UserRepo) CreateTx(ctx context.Context, tx pgx.Tx, u *models.User) error {
	beneficiaries, err := json.Marshal(u.SavedBeneficiaries)
	if err != nil {
		return err
	}
	return tx.QueryRow(ctx, `
		INSERT INTO users (id, username, email, phone_number, password_hash, activity_points,
			referral_earnings, referral_code, referral_count, invite_code_used, is_admin,
			last_reward_date, read_posts, commented_posts, saved_beneficiaries)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at
	`, u.ID, u.Username, u.Email, u.PhoneNumber, u.PasswordHash, u.ActivityPoints,
		u.ReferralEarnings, u.ReferralCode, u.ReferralCount, u.InviteCodeUsed, u.IsAdmin,
		u.LastRewardDate, u.ReadPostIDs, u.CommentedPostIDs, beneficiaries,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByIdentifier looks a user up by email or phone number, for login.
func (r *UserRepo) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE email = $1 OR phone_number = $1
	`, identifier))
}

// GetByReferralCodeTx resolves a referral code to its owner inside tx.
func (r *UserRepo) GetByReferralCodeTx(ctx context.Context, tx pgx.Tx, code string) (*models.User, error) {
	return scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE referral_code = $1`, code))
}

// GetForUpdate locks the user row for update. Call within a transaction; this
// serializes all balance mutations per user.
func (r *UserRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.User, error) {
	return scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
}

func (r *UserRepo) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// Exists reports whether any user already claims the given username, email or
// phone number.
func (r *UserRepo) Exists(ctx context.Context, username, email, phone string) (bool, error) {
	var found bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2 OR phone_number = $3)
	`, username, email, phone).Scan(&found)
	return found, err
}

func (r *UserRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *UserRepo) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1
	`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// CreditActivity adds delta (which may be negative) to the activity balance
// and returns the new balance. No floor is enforced: administrators may drive
// a balance negative as a penalty.
func (r *UserRepo) CreditActivity(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	var newBalance decimal.Decimal
	err := tx.QueryRow(ctx, `
		UPDATE users SET activity_points = activity_points + $1, updated_at = now()
		WHERE id = $2
		RETURNING activity_points
	`, delta, id).Scan(&newBalance)
	return newBalance, err
}

// DebitSource atomically deducts amount from the chosen balance if sufficient.
// Returns pgx.ErrNoRows when the balance is too low (or the user is gone).
func (r *UserRepo) DebitSource(ctx context.Context, tx pgx.Tx, id uuid.UUID, source string, amount decimal.Decimal) (decimal.Decimal, error) {
	column := sourceColumn(source)
	var newBalance decimal.Decimal
	err := tx.QueryRow(ctx, `
		UPDATE users SET `+column+` = `+column+` - $1, updated_at = now()
		WHERE id = $2 AND `+column+` >= $1
		RETURNING `+column+`
	`, amount, id).Scan(&newBalance)
	return newBalance, err
}

// CreditSource returns amount to the chosen balance (withdrawal refunds).
func (r *UserRepo) CreditSource(ctx context.Context, tx pgx.Tx, id uuid.UUID, source string, amount decimal.Decimal) (decimal.Decimal, error) {
	column := sourceColumn(source)
	var newBalance decimal.Decimal
	err := tx.QueryRow(ctx, `
		UPDATE users SET `+column+` = `+column+` + $1, updated_at = now()
		WHERE id = $2
		RETURNING `+column+`
	`, amount, id).Scan(&newBalance)
	return newBalance, err
}

// CreditReferralBonus credits the referral balance and bumps the referral
// count in one statement.
func (r *UserRepo) CreditReferralBonus(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	var newBalance decimal.Decimal
	err := tx.QueryRow(ctx, `
		UPDATE users SET referral_earnings = referral_earnings + $1,
			referral_count = referral_count + 1, updated_at = now()
		WHERE id = $2
		RETURNING referral_earnings
	`, amount, id).Scan(&newBalance)
	return newBalance, err
}

func (r *UserRepo) SetLastRewardDate(ctx context.Context, tx pgx.Tx, id uuid.UUID, date string) error {
	_, err := tx.Exec(ctx, `
		UPDATE users SET last_reward_date = $2, updated_at = now() WHERE id = $1
	`, id, date)
	return err
}

func (r *UserRepo) MarkPostRead(ctx context.Context, tx pgx.Tx, id uuid.UUID, postID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE users SET read_posts = array_append(read_posts, $2), updated_at = now()
		WHERE id = $1 AND NOT (read_posts @> ARRAY[$2])
	`, id, postID)
	return err
}

func (r *UserRepo) MarkPostCommented(ctx context.Context, tx pgx.Tx, id uuid.UUID, postID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE users SET commented_posts = array_append(commented_posts, $2), updated_at = now()
		WHERE id = $1 AND NOT (commented_posts @> ARRAY[$2])
	`, id, postID)
	return err
}

// SaveBeneficiary appends a payout contact to the user's saved list.
func (r *UserRepo) SaveBeneficiary(ctx context.Context, tx pgx.Tx, id uuid.UUID, b models.Beneficiary) error {
	encoded, err := json.Marshal([]models.Beneficiary{b})
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE users SET saved_beneficiaries = saved_beneficiaries || $2::jsonb, updated_at = now()
		WHERE id = $1
	`, id, encoded)
	return err
}

func sourceColumn(source string) string {
	if source == models.SourceReferral {
		return "referral_earnings"
	}
	return "activity_points"
}
