package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdminEmail marks the bootstrap administrator account created by the seeder.
const AdminEmail = "admin@anp.com"

// Beneficiary is a saved payout destination (mobile money account) embedded
// in the owning user's record. Immutable after creation.
type Beneficiary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Number   string `json:"number"`
	Provider string `json:"provider"`
}

type User struct {
	ID               uuid.UUID       `json:"id"`
	Username         string          `json:"username"`
	Email            string          `json:"email"`
	PhoneNumber      string          `json:"phone_number"`
	PasswordHash     string          `json:"-"`
	ActivityPoints   decimal.Decimal `json:"activity_points"`
	ReferralEarnings decimal.Decimal `json:"referral_earnings"`
	ReferralCode     string          `json:"referral_code"`
	ReferralCount    int             `json:"referral_count"`
	InviteCodeUsed   string          `json:"invite_code_used,omitempty"`
	IsAdmin          bool            `json:"is_admin"`
	// LastRewardDate is the server-local calendar date (YYYY-MM-DD) of the
	// last daily reward claim. Empty if never claimed.
	LastRewardDate     string        `json:"last_reward_date,omitempty"`
	ReadPostIDs        []string      `json:"read_posts"`
	CommentedPostIDs   []string      `json:"commented_posts"`
	SavedBeneficiaries []Beneficiary `json:"saved_beneficiaries"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// HasRead reports whether the READ reward was already claimed for postID.
func (u *User) HasRead(postID string) bool {
	for _, id := range u.ReadPostIDs {
		if id == postID {
			return true
		}
	}
	return false
}

// HasCommented reports whether the COMMENT reward was already claimed for postID.
func (u *User) HasCommented(postID string) bool {
	for _, id := range u.CommentedPostIDs {
		if id == postID {
			return true
		}
	}
	return false
}
