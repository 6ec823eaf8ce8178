package models

import (
	"time"

	"github.com/google/uuid"
)

// SystemRootCode is the bootstrap invite code inserted by the seeder so the
// first (admin) account can be registered.
const SystemRootCode = "SYSTEM_ROOT"

// InviteCode gates signup: each code is single-use and marked used atomically
// when a registration redeems it.
type InviteCode struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	CreatedBy string    `json:"created_by"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

// Announcement is a line shown in the homepage ticker.
type Announcement struct {
	ID     uuid.UUID `json:"id"`
	Text   string    `json:"text"`
	Active bool      `json:"active"`
}
