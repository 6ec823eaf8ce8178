package router

import (
	"net/http"

	"github.com/afnews/backend/internal/admin"
	"github.com/afnews/backend/internal/auth"
	"github.com/afnews/backend/internal/ledger"
	"github.com/afnews/backend/internal/middleware"
	"github.com/afnews/backend/internal/posts"
	"github.com/afnews/backend/internal/wallet"
)

// New returns an http.Handler serving the API under /api/v1. tokens is the
// auth service slice used by the bearer-token middleware.
func New(
	tokens middleware.TokenValidator,
	authHandler *auth.Handler,
	postsHandler *posts.Handler,
	walletHandler *wallet.Handler,
	ledgerHandler *ledger.Handler,
	adminHandler *admin.Handler,
) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	authed := middleware.Authenticate(tokens)
	admins := func(h http.HandlerFunc) http.Handler {
		return authed(middleware.RequireAdmin(h))
	}

	// Public.
	mux.HandleFunc("POST "+base+"/auth/register", authHandler.Register)
	mux.HandleFunc("POST "+base+"/auth/login", authHandler.Login)
	mux.HandleFunc("GET "+base+"/posts", postsHandler.List)
	mux.HandleFunc("GET "+base+"/posts/{id}", postsHandler.Get)
	mux.HandleFunc("GET "+base+"/posts/{id}/comments", postsHandler.ListComments)
	mux.HandleFunc("GET "+base+"/announcements", adminHandler.ActiveAnnouncements)
	mux.HandleFunc("GET "+base+"/stats", adminHandler.Stats)

	// Authenticated members.
	mux.Handle("GET "+base+"/me", authed(http.HandlerFunc(authHandler.Me)))
	mux.Handle("POST "+base+"/posts", authed(http.HandlerFunc(postsHandler.Submit)))
	mux.Handle("POST "+base+"/posts/{id}/read", authed(http.HandlerFunc(postsHandler.ClaimRead)))
	mux.Handle("POST "+base+"/posts/{id}/comments", authed(http.HandlerFunc(postsHandler.AddComment)))
	mux.Handle("POST "+base+"/rewards/daily", authed(http.HandlerFunc(ledgerHandler.ClaimDaily)))
	mux.Handle("GET "+base+"/wallet", authed(http.HandlerFunc(walletHandler.Balances)))
	mux.Handle("GET "+base+"/transactions", authed(http.HandlerFunc(walletHandler.Transactions)))
	mux.Handle("GET "+base+"/withdrawals", authed(http.HandlerFunc(walletHandler.Withdrawals)))
	mux.Handle("POST "+base+"/withdrawals", authed(http.HandlerFunc(walletHandler.Withdraw)))

	// Admin.
	mux.Handle("GET "+base+"/admin/users", admins(adminHandler.ListUsers))
	mux.Handle("POST "+base+"/admin/users/{id}/adjust", admins(adminHandler.AdjustFunds))
	mux.Handle("POST "+base+"/admin/users/{id}/reset-password", admins(adminHandler.ResetPassword))
	mux.Handle("DELETE "+base+"/admin/users/{id}", admins(adminHandler.DeleteUser))
	mux.Handle("GET "+base+"/admin/withdrawals", admins(adminHandler.ListWithdrawals))
	mux.Handle("POST "+base+"/admin/withdrawals/{id}/resolve", admins(adminHandler.ResolveWithdrawal))
	mux.Handle("GET "+base+"/admin/posts", admins(adminHandler.ListPendingPosts))
	mux.Handle("POST "+base+"/admin/posts/{id}/approve", admins(adminHandler.ApprovePost))
	mux.Handle("POST "+base+"/admin/posts/{id}/reject", admins(adminHandler.RejectPost))
	mux.Handle("GET "+base+"/admin/invite-codes", admins(adminHandler.ListInvites))
	mux.Handle("POST "+base+"/admin/invite-codes", admins(adminHandler.MintInvites))
	mux.Handle("GET "+base+"/admin/announcements", admins(adminHandler.ListAnnouncements))
	mux.Handle("POST "+base+"/admin/announcements", admins(adminHandler.UpsertAnnouncement))
	mux.Handle("PUT "+base+"/admin/announcements", admins(adminHandler.UpsertAnnouncement))
	mux.Handle("DELETE "+base+"/admin/announcements/{id}", admins(adminHandler.DeleteAnnouncement))

	return mux
}
