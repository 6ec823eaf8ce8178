package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/afnews/backend/internal/middleware"
	"github.com/afnews/backend/internal/models"
)

// UserReader loads a user's wallet snapshot outside a transaction.
type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// HistoryReader lists a user's ledger entries and withdrawal requests.
type HistoryReader interface {
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error)
}

// WithdrawalReader lists a user's withdrawal requests.
type WithdrawalReader interface {
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Withdrawal, error)
}

type Handler struct {
	svc         Service
	users       UserReader
	txs         HistoryReader
	withdrawals WithdrawalReader
	log         *slog.Logger
}

func NewHandler(svc Service, users UserReader, txs HistoryReader, withdrawals WithdrawalReader, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, users: users, txs: txs, withdrawals: withdrawals, log: log}
}

type balanceResponse struct {
	ActivityPoints     decimal.Decimal      `json:"activity_points"`
	ReferralEarnings   decimal.Decimal      `json:"referral_earnings"`
	ReferralCode       string               `json:"referral_code"`
	ReferralCount      int                  `json:"referral_count"`
	SavedBeneficiaries []models.Beneficiary `json:"saved_beneficiaries"`
}

type withdrawRequest struct {
	Amount  decimal.Decimal     `json:"amount"`
	Source  string              `json:"source"`
	Details string              `json:"details"`
	Save    *models.Beneficiary `json:"save_beneficiary,omitempty"`
}

// Balances returns the caller's two balances and saved payout targets.
func (h *Handler) Balances(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	u, err := h.users.GetByID(r.Context(), p.UserID)
	if err != nil {
		h.log.Error("load wallet failed", "user_id", p.UserID, "error", err)
		http.Error(w, "failed to load wallet", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{
		ActivityPoints:     u.ActivityPoints,
		ReferralEarnings:   u.ReferralEarnings,
		ReferralCode:       u.ReferralCode,
		ReferralCount:      u.ReferralCount,
		SavedBeneficiaries: u.SavedBeneficiaries,
	})
}

// Transactions returns the caller's ledger history, newest first.
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	list, err := h.txs.ListByUserID(r.Context(), p.UserID)
	if err != nil {
		h.log.Error("list transactions failed", "user_id", p.UserID, "error", err)
		http.Error(w, "failed to list transactions", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.Transaction{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Withdrawals returns the caller's withdrawal requests, newest first.
func (h *Handler) Withdrawals(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	list, err := h.withdrawals.ListByUserID(r.Context(), p.UserID)
	if err != nil {
		h.log.Error("list withdrawals failed", "user_id", p.UserID, "error", err)
		http.Error(w, "failed to list withdrawals", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.Withdrawal{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Withdraw submits a withdrawal request. The amount leaves the chosen balance
// immediately; the request then waits for an administrator's decision.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	wd, err := h.svc.Submit(r.Context(), p.UserID, req.Amount, req.Source, req.Details, req.Save)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrInsufficientFunds):
			http.Error(w, "insufficient funds", http.StatusUnprocessableEntity)
		case errors.Is(err, ErrUserNotFound):
			http.Error(w, "user not found", http.StatusNotFound)
		default:
			h.log.Error("withdrawal failed", "user_id", p.UserID, "error", err)
			http.Error(w, "withdrawal failed", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, wd)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
