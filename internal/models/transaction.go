package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction type enums. One row is appended for every balance change and
// rows are never updated or deleted afterwards.
const (
	TxEarn          = "EARN"
	TxWithdrawal    = "WITHDRAWAL"
	TxAdjustment    = "ADJUSTMENT"
	TxRefund        = "REFUND"
	TxReferralBonus = "REFERRAL_BONUS"
)

// Transaction is an immutable ledger entry. Amount is signed: positive for
// credits, negative for debits.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}
