package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Withdrawal sources: which of the two balances the payout draws from.
const (
	SourceActivity = "ACTIVITY"
	SourceReferral = "REFERRAL"
)

// Withdrawal statuses. Pending is the only non-terminal state.
const (
	WithdrawalPending  = "Pending"
	WithdrawalPaid     = "Paid"
	WithdrawalRejected = "Rejected"
)

// Withdrawal is a claim against one of the user's balances. The amount is
// deducted at submission time; a rejection credits it back via a compensating
// REFUND transaction.
type Withdrawal struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Username  string          `json:"username"`
	Amount    decimal.Decimal `json:"amount"`
	Source    string          `json:"source"`
	Details   string          `json:"details"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}
