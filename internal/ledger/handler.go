package ledger

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/afnews/backend/internal/middleware"
	"github.com/afnews/backend/internal/rewards"
)

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// ClaimDaily pays the once-per-day check-in reward. A second claim on the
// same server day returns 409.
func (h *Handler) ClaimDaily(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	res, err := h.svc.GrantReward(r.Context(), p.UserID, rewards.Daily, "")
	if err != nil {
		switch {
		case errors.Is(err, rewards.ErrAlreadyClaimed):
			http.Error(w, "daily reward already claimed today", http.StatusConflict)
		case errors.Is(err, ErrUserNotFound):
			http.Error(w, "user not found", http.StatusNotFound)
		default:
			h.log.Error("daily claim failed", "user_id", p.UserID, "error", err)
			http.Error(w, "failed to claim reward", http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}
