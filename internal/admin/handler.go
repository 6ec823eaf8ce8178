package admin

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/afnews/backend/internal/auth"
	"github.com/afnews/backend/internal/ledger"
	"github.com/afnews/backend/internal/models"
	"github.com/afnews/backend/internal/posts"
	"github.com/afnews/backend/internal/wallet"
)

// UserStore is the slice of the user repository the admin surface needs.
type UserStore interface {
	List(ctx context.Context) ([]*models.User, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// WithdrawalStore lists every withdrawal request for review.
type WithdrawalStore interface {
	List(ctx context.Context) ([]*models.Withdrawal, error)
}

// InviteStore mints and lists signup codes.
type InviteStore interface {
	Create(ctx context.Context, c *models.InviteCode) error
	List(ctx context.Context) ([]*models.InviteCode, error)
}

// AnnouncementStore manages the homepage ticker.
type AnnouncementStore interface {
	Upsert(ctx context.Context, a *models.Announcement) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, activeOnly bool) ([]*models.Announcement, error)
}

// StatsStore provides the payout total for the dashboard.
type StatsStore interface {
	TotalPaidOut(ctx context.Context) (decimal.Decimal, error)
}

type Handler struct {
	users         UserStore
	withdrawals   WithdrawalStore
	invites       InviteStore
	announcements AnnouncementStore
	stats         StatsStore
	ledger        ledger.Service
	wallet        wallet.Service
	posts         posts.Service
	auth          auth.Service
	log           *slog.Logger
}

func NewHandler(
	users UserStore,
	withdrawals WithdrawalStore,
	invites InviteStore,
	announcements AnnouncementStore,
	stats StatsStore,
	ledgerSvc ledger.Service,
	walletSvc wallet.Service,
	postsSvc posts.Service,
	authSvc auth.Service,
	log *slog.Logger,
) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		users:         users,
		withdrawals:   withdrawals,
		invites:       invites,
		announcements: announcements,
		stats:         stats,
		ledger:        ledgerSvc,
		wallet:        walletSvc,
		posts:         postsSvc,
		auth:          authSvc,
		log:           log,
	}
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.List(r.Context())
	if err != nil {
		h.log.Error("list users failed", "error", err)
		http.Error(w, "failed to list users", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.User{}
	}
	writeJSON(w, http.StatusOK, list)
}

type adjustRequest struct {
	Delta  decimal.Decimal `json:"delta"`
	Reason string          `json:"reason"`
}

// AdjustFunds applies a signed correction to a member's activity balance. A
// negative delta may take the balance below zero; that is the intended way to
// claw back mistaken credits.
func (h *Handler) AdjustFunds(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Delta.IsZero() || req.Reason == "" {
		http.Error(w, "delta and reason are required", http.StatusBadRequest)
		return
	}
	if err := h.ledger.AdjustFunds(r.Context(), id, req.Delta, req.Reason); err != nil {
		if errors.Is(err, ledger.ErrUserNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		h.log.Error("adjust funds failed", "user_id", id, "error", err)
		http.Error(w, "adjustment failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type resetPasswordRequest struct {
	NewPassword string `json:"new_password"`
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := h.auth.ResetPassword(r.Context(), id, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error("reset password failed", "user_id", id, "error", err)
		http.Error(w, "reset failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.users.Delete(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		h.log.Error("delete user failed", "user_id", id, "error", err)
		http.Error(w, "delete failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	list, err := h.withdrawals.List(r.Context())
	if err != nil {
		h.log.Error("list withdrawals failed", "error", err)
		http.Error(w, "failed to list withdrawals", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.Withdrawal{}
	}
	writeJSON(w, http.StatusOK, list)
}

type resolveRequest struct {
	Decision string `json:"decision"`
}

// ResolveWithdrawal marks a pending withdrawal Paid or Rejected. Resolving the
// same request twice returns 409; the first decision stands.
func (h *Handler) ResolveWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := h.wallet.Resolve(r.Context(), id, req.Decision); err != nil {
		switch {
		case errors.Is(err, wallet.ErrValidation):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, wallet.ErrNotFound):
			http.Error(w, "withdrawal not found", http.StatusNotFound)
		case errors.Is(err, wallet.ErrAlreadyResolved):
			http.Error(w, "withdrawal already resolved", http.StatusConflict)
		default:
			h.log.Error("resolve withdrawal failed", "withdrawal_id", id, "error", err)
			http.Error(w, "resolve failed", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListPendingPosts(w http.ResponseWriter, r *http.Request) {
	list, err := h.posts.ListPending(r.Context())
	if err != nil {
		h.log.Error("list pending posts failed", "error", err)
		http.Error(w, "failed to list posts", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.Post{}
	}
	writeJSON(w, http.StatusOK, list)
}

// ApprovePost publishes a pending submission and credits the author's
// activity balance through the ledger.
func (h *Handler) ApprovePost(w http.ResponseWriter, r *http.Request) {
	h.moderatePost(w, r, true)
}

// RejectPost declines a pending submission. No reward moves.
func (h *Handler) RejectPost(w http.ResponseWriter, r *http.Request) {
	h.moderatePost(w, r, false)
}

func (h *Handler) moderatePost(w http.ResponseWriter, r *http.Request, approve bool) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.posts.Moderate(r.Context(), id, approve); err != nil {
		if errors.Is(err, posts.ErrNotModeratable) {
			http.Error(w, "post missing or already moderated", http.StatusConflict)
			return
		}
		h.log.Error("moderate post failed", "post_id", id, "error", err)
		http.Error(w, "moderation failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type mintInvitesRequest struct {
	Count int `json:"count"`
}

// MintInvites generates a batch of single-use signup codes.
func (h *Handler) MintInvites(w http.ResponseWriter, r *http.Request) {
	var req mintInvitesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Count < 1 || req.Count > 100 {
		http.Error(w, "count must be between 1 and 100", http.StatusBadRequest)
		return
	}
	minted := make([]*models.InviteCode, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		code, err := generateInviteCode()
		if err != nil {
			h.log.Error("mint invite failed", "error", err)
			http.Error(w, "mint failed", http.StatusInternalServerError)
			return
		}
		c := &models.InviteCode{ID: uuid.New(), Code: code, CreatedBy: "admin"}
		if err := h.invites.Create(r.Context(), c); err != nil {
			h.log.Error("store invite failed", "error", err)
			http.Error(w, "mint failed", http.StatusInternalServerError)
			return
		}
		minted = append(minted, c)
	}
	writeJSON(w, http.StatusCreated, minted)
}

func (h *Handler) ListInvites(w http.ResponseWriter, r *http.Request) {
	list, err := h.invites.List(r.Context())
	if err != nil {
		h.log.Error("list invites failed", "error", err)
		http.Error(w, "failed to list invites", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.InviteCode{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) UpsertAnnouncement(w http.ResponseWriter, r *http.Request) {
	var a models.Announcement
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if a.Text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if err := h.announcements.Upsert(r.Context(), &a); err != nil {
		h.log.Error("upsert announcement failed", "error", err)
		http.Error(w, "save failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// ActiveAnnouncements serves the homepage ticker. Routed publicly.
func (h *Handler) ActiveAnnouncements(w http.ResponseWriter, r *http.Request) {
	list, err := h.announcements.List(r.Context(), true)
	if err != nil {
		h.log.Error("list announcements failed", "error", err)
		http.Error(w, "failed to list announcements", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.Announcement{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) ListAnnouncements(w http.ResponseWriter, r *http.Request) {
	list, err := h.announcements.List(r.Context(), false)
	if err != nil {
		h.log.Error("list announcements failed", "error", err)
		http.Error(w, "failed to list announcements", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.Announcement{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) DeleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "missing announcement id", http.StatusBadRequest)
		return
	}
	if err := h.announcements.Delete(r.Context(), id); err != nil {
		h.log.Error("delete announcement failed", "id", id, "error", err)
		http.Error(w, "delete failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statsResponse struct {
	TotalUsers   int64           `json:"total_users"`
	TotalPaidOut decimal.Decimal `json:"total_paid_out"`
}

// Stats returns the dashboard headline numbers.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.Count(r.Context())
	if err != nil {
		h.log.Error("count users failed", "error", err)
		http.Error(w, "failed to load stats", http.StatusInternalServerError)
		return
	}
	paid, err := h.stats.TotalPaidOut(r.Context())
	if err != nil {
		h.log.Error("sum payouts failed", "error", err)
		http.Error(w, "failed to load stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{TotalUsers: users, TotalPaidOut: paid})
}

const inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generateInviteCode returns a 10-character code without the easily confused
// characters (0/O, 1/I).
func generateInviteCode() (string, error) {
	buf := make([]byte, 10)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = inviteAlphabet[int(b)%len(inviteAlphabet)]
	}
	return fmt.Sprintf("ANP-%s", buf), nil
}

func pathUUID(w http.ResponseWriter, r *http.Request, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(key))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
