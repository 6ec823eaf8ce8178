package posts

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/afnews/backend/internal/ledger"
	"github.com/afnews/backend/internal/middleware"
	"github.com/afnews/backend/internal/models"
	"github.com/afnews/backend/internal/rewards"
)

// UserDirectory resolves display names for authenticated callers.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type Handler struct {
	svc   Service
	users UserDirectory
	log   *slog.Logger
}

func NewHandler(svc Service, users UserDirectory, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, users: users, log: log}
}

type submitRequest struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Content  string `json:"content"`
	ImageURL string `json:"image_url,omitempty"`
}

type commentRequest struct {
	Text string `json:"text"`
}

type commentResponse struct {
	Comment *models.Comment `json:"comment"`
	Reward  *ledger.Result  `json:"reward,omitempty"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.svc.ListApproved(r.Context())
	if err != nil {
		h.log.Error("list posts failed", "error", err)
		http.Error(w, "failed to list posts", http.StatusInternalServerError)
		return
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			http.Error(w, "post not found", http.StatusNotFound)
			return
		}
		h.log.Error("get post failed", "post_id", id, "error", err)
		http.Error(w, "failed to load post", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	author, err := h.users.GetByID(r.Context(), p.UserID)
	if err != nil {
		h.log.Error("load author failed", "user_id", p.UserID, "error", err)
		http.Error(w, "failed to submit post", http.StatusInternalServerError)
		return
	}
	post, err := h.svc.Submit(r.Context(), SubmitInput{
		Title:      req.Title,
		Category:   req.Category,
		Content:    req.Content,
		AuthorID:   author.ID,
		AuthorName: author.Username,
		ImageURL:   req.ImageURL,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidPost) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error("submit post failed", "user_id", p.UserID, "error", err)
		http.Error(w, "failed to submit post", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// ClaimRead pays the read reward for an approved article. A repeat claim
// returns 409 so the client can stop showing the "earn" prompt.
func (h *Handler) ClaimRead(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := h.svc.ClaimRead(r.Context(), p.UserID, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrPostNotFound):
			http.Error(w, "post not found", http.StatusNotFound)
		case errors.Is(err, rewards.ErrAlreadyClaimed):
			http.Error(w, "reward already claimed for this post", http.StatusConflict)
		default:
			h.log.Error("claim read failed", "user_id", p.UserID, "post_id", id, "error", err)
			http.Error(w, "failed to claim reward", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	comments, err := h.svc.ListComments(r.Context(), id)
	if err != nil {
		h.log.Error("list comments failed", "post_id", id, "error", err)
		http.Error(w, "failed to list comments", http.StatusInternalServerError)
		return
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	writeJSON(w, http.StatusOK, comments)
}

func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	author, err := h.users.GetByID(r.Context(), p.UserID)
	if err != nil {
		h.log.Error("load commenter failed", "user_id", p.UserID, "error", err)
		http.Error(w, "failed to add comment", http.StatusInternalServerError)
		return
	}
	c, res, err := h.svc.AddComment(r.Context(), author.ID, author.Username, id, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, ErrPostNotFound):
			http.Error(w, "post not found", http.StatusNotFound)
		case errors.Is(err, ErrInvalidPost):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.log.Error("add comment failed", "user_id", p.UserID, "post_id", id, "error", err)
			http.Error(w, "failed to add comment", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, commentResponse{Comment: c, Reward: res})
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid post id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
