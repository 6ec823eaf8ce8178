package rewards

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/afnews/backend/internal/config"
	"github.com/afnews/backend/internal/models"
)

var testAmounts = config.Rewards{
	Daily:         decimal.NewFromFloat(5.00),
	Read:          decimal.NewFromFloat(0.20),
	Comment:       decimal.NewFromFloat(0.20),
	PostApproved:  decimal.NewFromFloat(10.00),
	ReferralBonus: decimal.NewFromFloat(50.00),
}

func TestEvaluateDaily(t *testing.T) {
	u := &models.User{}

	d, err := Evaluate(u, Daily, "", "2026-08-31", testAmounts)
	if err != nil {
		t.Fatalf("first daily claim: %v", err)
	}
	if !d.Amount.Equal(decimal.NewFromFloat(5.00)) {
		t.Errorf("daily amount: got %s, want 5", d.Amount)
	}
	if d.SetLastRewardDate != "2026-08-31" {
		t.Errorf("SetLastRewardDate: got %q", d.SetLastRewardDate)
	}

	// Same day again is rejected.
	u.LastRewardDate = "2026-08-31"
	if _, err := Evaluate(u, Daily, "", "2026-08-31", testAmounts); !errors.Is(err, ErrAlreadyClaimed) {
		t.Errorf("second claim same day: got %v, want ErrAlreadyClaimed", err)
	}

	// Next day succeeds.
	if _, err := Evaluate(u, Daily, "", "2026-09-01", testAmounts); err != nil {
		t.Errorf("claim on next day: %v", err)
	}
}

func TestEvaluateRead(t *testing.T) {
	u := &models.User{ReadPostIDs: []string{"A1"}}

	if _, err := Evaluate(u, Read, "A1", "2026-08-31", testAmounts); !errors.Is(err, ErrAlreadyClaimed) {
		t.Errorf("duplicate read claim: got %v, want ErrAlreadyClaimed", err)
	}

	d, err := Evaluate(u, Read, "A2", "2026-08-31", testAmounts)
	if err != nil {
		t.Fatalf("fresh read claim: %v", err)
	}
	if d.MarkRead != "A2" {
		t.Errorf("MarkRead: got %q, want A2", d.MarkRead)
	}
	if !d.Amount.Equal(decimal.NewFromFloat(0.20)) {
		t.Errorf("read amount: got %s, want 0.2", d.Amount)
	}

	if _, err := Evaluate(u, Read, "", "2026-08-31", testAmounts); !errors.Is(err, ErrMissingReference) {
		t.Errorf("read without ref: got %v, want ErrMissingReference", err)
	}
}

func TestEvaluateComment(t *testing.T) {
	u := &models.User{CommentedPostIDs: []string{"A1"}}

	if _, err := Evaluate(u, Comment, "A1", "2026-08-31", testAmounts); !errors.Is(err, ErrAlreadyClaimed) {
		t.Errorf("duplicate comment claim: got %v, want ErrAlreadyClaimed", err)
	}
	d, err := Evaluate(u, Comment, "A2", "2026-08-31", testAmounts)
	if err != nil {
		t.Fatalf("fresh comment claim: %v", err)
	}
	if d.MarkCommented != "A2" {
		t.Errorf("MarkCommented: got %q, want A2", d.MarkCommented)
	}
}

func TestEvaluatePostApproved(t *testing.T) {
	u := &models.User{}
	d, err := Evaluate(u, PostApproved, "P1", "2026-08-31", testAmounts)
	if err != nil {
		t.Fatalf("post approved: %v", err)
	}
	if !d.Amount.Equal(decimal.NewFromFloat(10.00)) {
		t.Errorf("approval amount: got %s, want 10", d.Amount)
	}
	// No claim marker: the Pending->Approved transition is the guard.
	if d.SetLastRewardDate != "" || d.MarkRead != "" || d.MarkCommented != "" {
		t.Errorf("approval decision should carry no claim marker: %+v", d)
	}
	if _, err := Evaluate(u, PostApproved, "", "2026-08-31", testAmounts); !errors.Is(err, ErrMissingReference) {
		t.Errorf("approval without ref: got %v, want ErrMissingReference", err)
	}
}

func TestEvaluateUnknownType(t *testing.T) {
	if _, err := Evaluate(&models.User{}, Type("BOGUS"), "", "2026-08-31", testAmounts); !errors.Is(err, ErrUnknownType) {
		t.Errorf("unknown type: got %v, want ErrUnknownType", err)
	}
}
