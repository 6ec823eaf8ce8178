package referral

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/afnews/backend/internal/ledger"
)

// BonusArgs is the payload of the background job that credits a referrer
// after a successful referred signup. It is enqueued inside the signup
// transaction, so a signup that rolls back never produces a bonus.
type BonusArgs struct {
	ReferrerID  uuid.UUID `json:"referrer_id"`
	NewUserID   uuid.UUID `json:"new_user_id"`
	NewUserName string    `json:"new_user_name"`
}

func (BonusArgs) Kind() string { return "award_referral_bonus" }

// InsertOpts dedupes by args: one bonus per (referrer, new user) pair even if
// the job is enqueued twice.
func (BonusArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{UniqueOpts: river.UniqueOpts{ByArgs: true}}
}

// BonusWorker awards the referral bonus through the ledger.
type BonusWorker struct {
	river.WorkerDefaults[BonusArgs]
	ledger ledger.Service
}

func NewBonusWorker(ledgerSvc ledger.Service) *BonusWorker {
	return &BonusWorker{ledger: ledgerSvc}
}

func (w *BonusWorker) Work(ctx context.Context, job *river.Job[BonusArgs]) error {
	err := w.ledger.AwardReferralBonus(ctx, job.Args.ReferrerID, job.Args.NewUserName)
	if errors.Is(err, ledger.ErrUserNotFound) {
		// Referrer was deleted before the job ran; nothing to credit and
		// retrying will not help.
		return nil
	}
	if err != nil {
		return fmt.Errorf("award referral bonus to %s: %w", job.Args.ReferrerID, err)
	}
	return nil
}
