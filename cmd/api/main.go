package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/afnews/backend/internal/admin"
	"github.com/afnews/backend/internal/auth"
	"github.com/afnews/backend/internal/config"
	"github.com/afnews/backend/internal/db"
	"github.com/afnews/backend/internal/ledger"
	"github.com/afnews/backend/internal/posts"
	"github.com/afnews/backend/internal/referral"
	"github.com/afnews/backend/internal/repository"
	"github.com/afnews/backend/internal/router"
	"github.com/afnews/backend/internal/wallet"
)

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
		slog.Error("Cannot reach PostgreSQL (connection refused or invalid). Ensure Postgres is running and seeded, e.g. go run ./cmd/seeder", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	slog.Info("Connected to PostgreSQL database successfully!")

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed. If the error is 'connection refused', start PostgreSQL first", "error", err)
		os.Exit(1)
	}
	slog.Info("River migrations applied")

	// Repositories
	userRepo := repository.NewUserRepo(pool)
	txRepo := repository.NewTransactionRepo(pool)
	withdrawalRepo := repository.NewWithdrawalRepo(pool)
	postRepo := repository.NewPostRepo(pool)
	commentRepo := repository.NewCommentRepo(pool)
	inviteRepo := repository.NewInviteRepo(pool)
	announcementRepo := repository.NewAnnouncementRepo(pool)

	// Ledger and wallet
	ledgerSvc := ledger.NewService(pool, userRepo, txRepo, cfg.Rewards)
	walletSvc := wallet.NewService(pool, userRepo, withdrawalRepo, txRepo, cfg.Withdrawals)
	postsSvc := posts.NewService(postRepo, commentRepo, ledgerSvc)

	// Referral bonus: insert func is set after the River client is created
	// (breaks the init cycle between auth and the worker pool).
	var insertMu sync.Mutex
	var insertFn auth.EnqueueReferralBonusTxFunc
	enqueueBonus := func(ctx context.Context, tx pgx.Tx, args referral.BonusArgs) error {
		insertMu.Lock()
		fn := insertFn
		insertMu.Unlock()
		if fn == nil {
			panic("river insert not wired")
		}
		return fn(ctx, tx, args)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, referral.NewBonusWorker(ledgerSvc))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
		},
		Workers: workers,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	insertMu.Lock()
	insertFn = func(ctx context.Context, tx pgx.Tx, args referral.BonusArgs) error {
		_, err := riverClient.InsertTx(ctx, tx, args, nil)
		return err
	}
	insertMu.Unlock()

	// Services and handlers
	authSvc := auth.NewService(userRepo, inviteRepo, enqueueBonus, cfg.JWTSecret)
	authHandler := auth.NewHandler(authSvc, userRepo, logger)
	postsHandler := posts.NewHandler(postsSvc, userRepo, logger)
	walletHandler := wallet.NewHandler(walletSvc, userRepo, txRepo, withdrawalRepo, logger)
	ledgerHandler := ledger.NewHandler(ledgerSvc, logger)
	adminHandler := admin.NewHandler(
		userRepo, withdrawalRepo, inviteRepo, announcementRepo, txRepo,
		ledgerSvc, walletSvc, postsSvc, authSvc, logger,
	)

	apiRouter := router.New(authSvc, authHandler, postsHandler, walletHandler, ledgerHandler, adminHandler)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle("GET /metrics", promhttp.Handler())

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
	}).Handler(mux)

	// Start River client (processes referral bonus jobs)
	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	serverAddr := "0.0.0.0:" + cfg.Port
	slog.Info("Starting HTTP server", "addr", serverAddr)
	if err := http.ListenAndServe(serverAddr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
