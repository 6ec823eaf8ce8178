package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/afnews/backend/internal/config"
	"github.com/afnews/backend/internal/db"
	"github.com/afnews/backend/internal/models"
)

// Idempotent schema bootstrap plus the two rows the platform cannot start
// without: the SYSTEM_ROOT invite code and the admin account.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		phone_number TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		activity_points NUMERIC(14,2) NOT NULL DEFAULT 0,
		referral_earnings NUMERIC(14,2) NOT NULL DEFAULT 0,
		referral_code TEXT NOT NULL UNIQUE,
		referral_count INT NOT NULL DEFAULT 0,
		invite_code_used TEXT NOT NULL DEFAULT '',
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		last_reward_date TEXT NOT NULL DEFAULT '',
		read_posts TEXT[] NOT NULL DEFAULT '{}',
		commented_posts TEXT[] NOT NULL DEFAULT '{}',
		saved_beneficiaries JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		amount NUMERIC(14,2) NOT NULL,
		type TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_user_created_idx
		ON transactions (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS withdrawals (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		username TEXT NOT NULL,
		amount NUMERIC(14,2) NOT NULL,
		source TEXT NOT NULL,
		details TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'Pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		category TEXT NOT NULL,
		content TEXT NOT NULL,
		author_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		author_name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'Pending',
		image_url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id UUID PRIMARY KEY,
		post_id UUID NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		username TEXT NOT NULL,
		text TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS invite_codes (
		id UUID PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		created_by TEXT NOT NULL DEFAULT '',
		used BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS announcements (
		id UUID PRIMARY KEY,
		text TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Cannot reach PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			slog.Error("Schema statement failed", "error", err)
			os.Exit(1)
		}
	}
	slog.Info("Schema ensured")

	if _, err := pool.Exec(ctx, `
		INSERT INTO invite_codes (id, code, created_by)
		VALUES ($1, $2, 'system')
		ON CONFLICT (code) DO NOTHING
	`, uuid.New(), models.SystemRootCode); err != nil {
		slog.Error("Seeding root invite failed", "error", err)
		os.Exit(1)
	}

	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "admin123"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("Hashing admin password failed", "error", err)
		os.Exit(1)
	}
	tag, err := pool.Exec(ctx, `
		INSERT INTO users (id, username, email, phone_number, password_hash,
			referral_code, invite_code_used, is_admin)
		VALUES ($1, 'admin', $2, '0000000000', $3, 'ADMIN001', $4, TRUE)
		ON CONFLICT (email) DO NOTHING
	`, uuid.New(), models.AdminEmail, string(hash), models.SystemRootCode)
	if err != nil {
		slog.Error("Seeding admin account failed", "error", err)
		os.Exit(1)
	}
	if tag.RowsAffected() > 0 {
		slog.Info("Admin account created", "email", models.AdminEmail)
	} else {
		slog.Info("Admin account already present", "email", models.AdminEmail)
	}

	slog.Info("Seed complete")
}
