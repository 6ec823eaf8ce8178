package posts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/afnews/backend/internal/ledger"
	"github.com/afnews/backend/internal/models"
	"github.com/afnews/backend/internal/rewards"
)

var (
	// ErrPostNotFound is returned when the post id is unknown or the post is
	// not visible to readers.
	ErrPostNotFound = errors.New("post not found")
	// ErrNotModeratable is returned when a moderation decision targets a post
	// that is missing or has already been approved or rejected.
	ErrNotModeratable = errors.New("post missing or already moderated")
	// ErrInvalidPost is returned for a submission with missing fields or an
	// unknown category.
	ErrInvalidPost = errors.New("invalid post submission")
)

// PostStore is the slice of the post repository the service needs.
type PostStore interface {
	Create(ctx context.Context, p *models.Post) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	ListByStatus(ctx context.Context, status string) ([]*models.Post, error)
	Transition(ctx context.Context, id uuid.UUID, status string) (uuid.UUID, error)
}

// CommentStore persists reader comments.
type CommentStore interface {
	Create(ctx context.Context, c *models.Comment) error
	ListByPostID(ctx context.Context, postID uuid.UUID) ([]*models.Comment, error)
}

// SubmitInput carries a reader's post submission.
type SubmitInput struct {
	Title      string
	Category   string
	Content    string
	AuthorID   uuid.UUID
	AuthorName string
	ImageURL   string
}

type Service interface {
	Submit(ctx context.Context, in SubmitInput) (*models.Post, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Post, error)
	ListApproved(ctx context.Context) ([]*models.Post, error)
	ListPending(ctx context.Context) ([]*models.Post, error)
	Moderate(ctx context.Context, id uuid.UUID, approve bool) error
	ClaimRead(ctx context.Context, userID, postID uuid.UUID) (*ledger.Result, error)
	AddComment(ctx context.Context, userID uuid.UUID, username string, postID uuid.UUID, text string) (*models.Comment, *ledger.Result, error)
	ListComments(ctx context.Context, postID uuid.UUID) ([]*models.Comment, error)
}

type service struct {
	posts    PostStore
	comments CommentStore
	ledger   ledger.Service
}

func NewService(posts PostStore, comments CommentStore, ledgerSvc ledger.Service) *service {
	return &service{posts: posts, comments: comments, ledger: ledgerSvc}
}

var _ Service = (*service)(nil)

// Submit creates a post in Pending status. It becomes visible to readers only
// after an administrator approves it.
func (s *service) Submit(ctx context.Context, in SubmitInput) (*models.Post, error) {
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	if title == "" || content == "" {
		return nil, fmt.Errorf("%w: title and content are required", ErrInvalidPost)
	}
	if !models.ValidCategory(in.Category) {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidPost, in.Category)
	}
	p := &models.Post{
		ID:         uuid.New(),
		Title:      title,
		Category:   in.Category,
		Content:    content,
		AuthorID:   in.AuthorID,
		AuthorName: in.AuthorName,
		Status:     models.PostPending,
		ImageURL:   in.ImageURL,
	}
	if err := s.posts.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return p, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	p, err := s.posts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *service) ListApproved(ctx context.Context) ([]*models.Post, error) {
	return s.posts.ListByStatus(ctx, models.PostApproved)
}

func (s *service) ListPending(ctx context.Context) ([]*models.Post, error) {
	return s.posts.ListByStatus(ctx, models.PostPending)
}

// Moderate approves or rejects a pending post. Approval pays the author the
// post-approval reward exactly once: the Pending->Approved transition is the
// guard, so a second approval attempt fails with ErrNotModeratable before any
// money moves.
func (s *service) Moderate(ctx context.Context, id uuid.UUID, approve bool) error {
	status := models.PostRejected
	if approve {
		status = models.PostApproved
	}
	authorID, err := s.posts.Transition(ctx, id, status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotModeratable
		}
		return fmt.Errorf("transition post: %w", err)
	}
	if !approve {
		return nil
	}
	if _, err := s.ledger.GrantReward(ctx, authorID, rewards.PostApproved, id.String()); err != nil {
		return fmt.Errorf("grant approval reward: %w", err)
	}
	return nil
}

// ClaimRead records that the reader finished an approved article and pays the
// read reward. A repeat claim for the same post surfaces the ledger's
// already-claimed error.
func (s *service) ClaimRead(ctx context.Context, userID, postID uuid.UUID) (*ledger.Result, error) {
	if err := s.requireApproved(ctx, postID); err != nil {
		return nil, err
	}
	return s.ledger.GrantReward(ctx, userID, rewards.Read, postID.String())
}

// AddComment stores the comment and pays the comment reward for the reader's
// first comment on this post. Later comments still post, just without pay.
func (s *service) AddComment(ctx context.Context, userID uuid.UUID, username string, postID uuid.UUID, text string) (*models.Comment, *ledger.Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil, fmt.Errorf("%w: empty comment", ErrInvalidPost)
	}
	if err := s.requireApproved(ctx, postID); err != nil {
		return nil, nil, err
	}
	c := &models.Comment{
		ID:       uuid.New(),
		PostID:   postID,
		UserID:   userID,
		Username: username,
		Text:     text,
	}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, nil, fmt.Errorf("create comment: %w", err)
	}
	res, err := s.ledger.GrantReward(ctx, userID, rewards.Comment, postID.String())
	if errors.Is(err, rewards.ErrAlreadyClaimed) {
		return c, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("grant comment reward: %w", err)
	}
	return c, res, nil
}

func (s *service) ListComments(ctx context.Context, postID uuid.UUID) ([]*models.Comment, error) {
	return s.comments.ListByPostID(ctx, postID)
}

func (s *service) requireApproved(ctx context.Context, postID uuid.UUID) error {
	p, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPostNotFound
		}
		return fmt.Errorf("load post: %w", err)
	}
	if p.Status != models.PostApproved {
		return ErrPostNotFound
	}
	return nil
}
