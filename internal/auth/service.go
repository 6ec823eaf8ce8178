package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/afnews/backend/internal/models"
	"github.com/afnews/backend/internal/referral"
)

var (
	// ErrDuplicateAccount is returned when the username, email or phone
	// number is already registered.
	ErrDuplicateAccount = errors.New("account already exists")
	// ErrInvalidInvite is returned for an unknown or already redeemed E-Pin.
	ErrInvalidInvite = errors.New("invalid or already used invite code")
	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrWeakPassword is returned when the password is shorter than six
	// characters.
	ErrWeakPassword = errors.New("password must be at least 6 characters long")
)

// UserStore is the slice of the user repository used by auth.
type UserStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exists(ctx context.Context, username, email, phone string) (bool, error)
	CreateTx(ctx context.Context, tx pgx.Tx, u *models.User) error
	GetByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	GetByReferralCodeTx(ctx context.Context, tx pgx.Tx, code string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

// InviteStore redeems single-use signup codes.
type InviteStore interface {
	RedeemTx(ctx context.Context, tx pgx.Tx, code string) error
}

// EnqueueReferralBonusTxFunc enqueues the referral-bonus job within the given
// transaction. Provided by main using river.Client.InsertTx.
type EnqueueReferralBonusTxFunc func(ctx context.Context, tx pgx.Tx, args referral.BonusArgs) error

// RegisterInput carries the signup form fields.
type RegisterInput struct {
	Username     string
	Email        string
	PhoneNumber  string
	Password     string
	InviteCode   string
	ReferralCode string
}

type Service interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	Login(ctx context.Context, identifier, password string) (string, *models.User, error)
	ValidateToken(ctx context.Context, token string) (uuid.UUID, bool, error)
	ResetPassword(ctx context.Context, userID uuid.UUID, newPassword string) error
}

type service struct {
	users   UserStore
	invites InviteStore
	enqueue EnqueueReferralBonusTxFunc
	secret  []byte
}

// NewService creates the auth service. enqueue is typically a closure over
// river.Client.InsertTx.
func NewService(users UserStore, invites InviteStore, enqueue EnqueueReferralBonusTxFunc, jwtSecret string) *service {
	return &service{users: users, invites: invites, enqueue: enqueue, secret: []byte(jwtSecret)}
}

var _ Service = (*service)(nil)

type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Register creates an account. The invite-code redemption, the user insert
// and (when a valid referral code was supplied) the referral-bonus enqueue
// all commit in one transaction.
func (s *service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if len(in.Password) < 6 {
		return nil, ErrWeakPassword
	}
	exists, err := s.users.Exists(ctx, in.Username, in.Email, in.PhoneNumber)
	if err != nil {
		return nil, fmt.Errorf("check existing account: %w", err)
	}
	if exists {
		return nil, ErrDuplicateAccount
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	refCode, err := generateReferralCode()
	if err != nil {
		return nil, err
	}

	tx, err := s.users.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin signup: %w", err)
	}
	defer tx.Rollback(ctx)

	inviteCode := strings.ToUpper(strings.TrimSpace(in.InviteCode))
	if err := s.invites.RedeemTx(ctx, tx, inviteCode); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidInvite
		}
		return nil, fmt.Errorf("redeem invite: %w", err)
	}

	u := &models.User{
		ID:                 uuid.New(),
		Username:           in.Username,
		Email:              in.Email,
		PhoneNumber:        in.PhoneNumber,
		PasswordHash:       string(hash),
		ActivityPoints:     decimal.Zero,
		ReferralEarnings:   decimal.Zero,
		ReferralCode:       refCode,
		InviteCodeUsed:     inviteCode,
		IsAdmin:            strings.EqualFold(in.Email, models.AdminEmail),
		ReadPostIDs:        []string{},
		CommentedPostIDs:   []string{},
		SavedBeneficiaries: []models.Beneficiary{},
	}
	if err := s.users.CreateTx(ctx, tx, u); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateAccount
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if code := strings.ToUpper(strings.TrimSpace(in.ReferralCode)); code != "" {
		referrer, err := s.users.GetByReferralCodeTx(ctx, tx, code)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			// An unknown referral code is ignored; the signup still goes through.
		case err != nil:
			return nil, fmt.Errorf("resolve referrer: %w", err)
		default:
			if err := s.enqueue(ctx, tx, referral.BonusArgs{
				ReferrerID:  referrer.ID,
				NewUserID:   u.ID,
				NewUserName: u.Username,
			}); err != nil {
				return nil, fmt.Errorf("enqueue referral bonus: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit signup: %w", err)
	}
	return u, nil
}

// Login accepts an email address or a phone number as identifier.
func (s *service) Login(ctx context.Context, identifier, password string) (string, *models.User, error) {
	u, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	token, err := s.issueToken(u)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (s *service) issueToken(u *models.User) (string, error) {
	role := "member"
	if u.IsAdmin {
		role = "admin"
	}
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Role: role,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

// ValidateToken returns the user id and whether the token carries the admin
// role.
func (s *service) ValidateToken(ctx context.Context, token string) (uuid.UUID, bool, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, false, err
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return uuid.Nil, false, errors.New("invalid token")
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, false, err
	}
	return id, c.Role == "admin", nil
}

// ResetPassword stores a bcrypt hash of the new credential. Used by the admin
// reset path.
func (s *service) ResetPassword(ctx context.Context, userID uuid.UUID, newPassword string) error {
	if len(newPassword) < 6 {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, string(hash)); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("user %s: not found", userID)
		}
		return err
	}
	return nil
}

const referralCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generateReferralCode returns an 8-character uppercase alphanumeric code.
func generateReferralCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = referralCodeAlphabet[int(b)%len(referralCodeAlphabet)]
	}
	return string(buf), nil
}
