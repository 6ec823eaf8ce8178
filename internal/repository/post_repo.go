package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/afnews/backend/internal/models"
)

type PostRepo struct {
	pool *pgxpool.Pool
}

func NewPostRepo(pool *pgxpool.Pool) *PostRepo {
	return &PostRepo{pool: pool}
}

func (r *PostRepo) Create(ctx context.Context, p *models.Post) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO posts (id, title, category, content, author_id, author_name, status, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, p.ID, p.Title, p.Category, p.Content, p.AuthorID, p.AuthorName, p.Status, p.ImageURL).Scan(&p.CreatedAt)
}

func (r *PostRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var p models.Post
	err := r.pool.QueryRow(ctx, `
		SELECT id, title, category, content, author_id, author_name, status, image_url, created_at
		FROM posts WHERE id = $1
	`, id).Scan(&p.ID, &p.Title, &p.Category, &p.Content, &p.AuthorID, &p.AuthorName, &p.Status, &p.ImageURL, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostRepo) ListByStatus(ctx context.Context, status string) ([]*models.Post, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, category, content, author_id, author_name, status, image_url, created_at
		FROM posts WHERE status = $1 ORDER BY created_at DESC
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Post
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Category, &p.Content, &p.AuthorID, &p.AuthorName, &p.Status, &p.ImageURL, &p.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}

// Transition moves a post from Pending to the given terminal status and
// returns the post's author. pgx.ErrNoRows means the post was missing or
// already moderated, so the caller must not grant the approval reward again.
func (r *PostRepo) Transition(ctx context.Context, id uuid.UUID, status string) (authorID uuid.UUID, err error) {
	err = r.pool.QueryRow(ctx, `
		UPDATE posts SET status = $2 WHERE id = $1 AND status = $3
		RETURNING author_id
	`, id, status, models.PostPending).Scan(&authorID)
	return authorID, err
}

type CommentRepo struct {
	pool *pgxpool.Pool
}

func NewCommentRepo(pool *pgxpool.Pool) *CommentRepo {
	return &CommentRepo{pool: pool}
}

func (r *CommentRepo) Create(ctx context.Context, c *models.Comment) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO comments (id, post_id, user_id, username, text)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, c.ID, c.PostID, c.UserID, c.Username, c.Text).Scan(&c.CreatedAt)
}

func (r *CommentRepo) ListByPostID(ctx context.Context, postID uuid.UUID) ([]*models.Comment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, post_id, user_id, username, text, created_at
		FROM comments WHERE post_id = $1 ORDER BY created_at ASC
	`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Username, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}
