package models

import (
	"time"

	"github.com/google/uuid"
)

// Post categories.
const (
	CategoryPolitics      = "Politics"
	CategorySports        = "Sports"
	CategoryEntertainment = "Entertainment"
	CategoryBusiness      = "Business"
	CategoryTech          = "Tech"
)

// Post statuses. Submissions start Pending; only an administrator moves them on.
const (
	PostPending  = "Pending"
	PostApproved = "Approved"
	PostRejected = "Rejected"
)

// ValidCategory reports whether c is one of the known post categories.
func ValidCategory(c string) bool {
	switch c {
	case CategoryPolitics, CategorySports, CategoryEntertainment, CategoryBusiness, CategoryTech:
		return true
	}
	return false
}

type Post struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Category   string    `json:"category"`
	Content    string    `json:"content"`
	AuthorID   uuid.UUID `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Status     string    `json:"status"`
	ImageURL   string    `json:"image_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Comment struct {
	ID        uuid.UUID `json:"id"`
	PostID    uuid.UUID `json:"post_id"`
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
