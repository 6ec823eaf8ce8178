package rewards

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/afnews/backend/internal/config"
	"github.com/afnews/backend/internal/models"
)

// Type identifies the activity that triggers a fixed-amount credit.
type Type string

const (
	Daily        Type = "DAILY"
	Read         Type = "READ"
	Comment      Type = "COMMENT"
	PostApproved Type = "POST_APPROVED"
)

var (
	// ErrAlreadyClaimed is returned when the same reward was granted before
	// (same calendar day for DAILY, same post for READ/COMMENT).
	ErrAlreadyClaimed = errors.New("reward already claimed")
	// ErrMissingReference is returned when a per-post reward is requested
	// without a post id.
	ErrMissingReference = errors.New("reward requires a reference id")
	// ErrUnknownType is returned for a reward type outside the enum.
	ErrUnknownType = errors.New("unknown reward type")
)

// Decision is the mutation that marks a reward as claimed, produced by
// Evaluate and applied by the ledger inside the granting transaction.
type Decision struct {
	Amount decimal.Decimal

	// Exactly one of the following is set, except for POST_APPROVED where
	// idempotence is owned by the post's Pending->Approved transition.
	SetLastRewardDate string
	MarkRead          string
	MarkCommented     string
}

// Today returns the server-local calendar date used for DAILY claims.
func Today() string {
	return time.Now().Format("2006-01-02")
}

// Evaluate decides whether typ may be granted to u and, if so, which state
// change marks it claimed. u is a snapshot; the caller must hold the user row
// locked so the snapshot cannot go stale before the mutation is applied.
func Evaluate(u *models.User, typ Type, refID, today string, amounts config.Rewards) (Decision, error) {
	switch typ {
	case Daily:
		if u.LastRewardDate == today {
			return Decision{}, fmt.Errorf("%w: daily reward for %s", ErrAlreadyClaimed, today)
		}
		return Decision{Amount: amounts.Daily, SetLastRewardDate: today}, nil
	case Read:
		if refID == "" {
			return Decision{}, ErrMissingReference
		}
		if u.HasRead(refID) {
			return Decision{}, fmt.Errorf("%w: already rewarded for reading post %s", ErrAlreadyClaimed, refID)
		}
		return Decision{Amount: amounts.Read, MarkRead: refID}, nil
	case Comment:
		if refID == "" {
			return Decision{}, ErrMissingReference
		}
		if u.HasCommented(refID) {
			return Decision{}, fmt.Errorf("%w: already rewarded for commenting on post %s", ErrAlreadyClaimed, refID)
		}
		return Decision{Amount: amounts.Comment, MarkCommented: refID}, nil
	case PostApproved:
		if refID == "" {
			return Decision{}, ErrMissingReference
		}
		return Decision{Amount: amounts.PostApproved}, nil
	default:
		return Decision{}, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
}
