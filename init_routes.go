// Package main — HTTP route registration.
//
// initRoutes, tüm API endpoint'lerini mux'a bağlar.
// Middleware chain helper'ı burada tanımlıdır:
//   - auth: JWT token doğrulaması + user'ı context'e koyma
package main

import (
	"fmt"
	"net/http"

	"github.com/akinalp/oda/handlers"
	"github.com/akinalp/oda/middleware"
	"github.com/akinalp/oda/repository"
	"github.com/akinalp/oda/services"
	"github.com/akinalp/oda/ws"
)

// initRoutes, middleware chain'i kurar ve tüm endpoint'leri mux'a bağlar.
//
// Route sıralama kuralı: Literal path'ler parametrik path'lerden ÖNCE
// tanımlanmalı. Örnek: "/api/connections/media" → "/api/connections/{id}"
// öncesinde, yoksa Go router "media" kelimesini bir id olarak yorumlar.
func initRoutes(
	mux *http.ServeMux,
	authService services.AuthService,
	userRepo repository.UserRepository,
	authHandler *handlers.AuthHandler,
	presenceHandler *handlers.PresenceHandler,
	selectionHandler *handlers.SelectionHandler,
	workspaceHandler *handlers.WorkspaceHandler,
	wsHandler *ws.Handler,
) {
	// ─── Middleware ───
	authMw := middleware.NewAuthMiddleware(authService, userRepo)

	auth := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(http.HandlerFunc(handler))
	}

	// Health check
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","service":"oda"}`)
	})

	// Auth — public endpoint'ler (token gerekmez)
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// User
	mux.Handle("GET /api/users/me", auth(authHandler.Me))
	mux.Handle("PUT /api/users/me/status", auth(presenceHandler.SetStatus))

	// Workspaces & kanallar — kalıcı kimlik verisi
	mux.Handle("GET /api/workspaces", auth(workspaceHandler.ListMine))
	mux.Handle("GET /api/workspaces/{id}/channels", auth(workspaceHandler.ListChannels))
	mux.Handle("GET /api/workspaces/{id}/connections", auth(presenceHandler.GetWorkspaceConnections))

	// Connections — canlı bağlantı sorguları
	mux.Handle("PATCH /api/connections/media", auth(selectionHandler.UpdateMediaState))
	mux.Handle("GET /api/connections/{id}", auth(presenceHandler.GetConnection))
	mux.Handle("GET /api/users/{id}/connections", auth(presenceHandler.GetUserConnections))

	// Channel selection — SFU odasına katılma/ayrılma
	mux.Handle("POST /api/channels/{id}/select", auth(selectionHandler.Select))
	mux.Handle("POST /api/channels/{id}/unselect", auth(selectionHandler.Unselect))
	mux.Handle("GET /api/channels/{id}/connections", auth(presenceHandler.GetChannelConnections))
	mux.Handle("GET /api/channels/{id}/members/{userId}", auth(presenceHandler.IsUserInChannel))

	// WebSocket — token query parameter ile authenticate edilir
	//
	// Neden auth middleware kullanmıyoruz?
	// WebSocket upgrade sırasında tarayıcılar custom HTTP header gönderemez.
	// Bu yüzden JWT token URL query parameter olarak gönderilir:
	//   ws://server/ws?token=JWT&workspace_id=w1
	// WS handler kendi içinde token doğrulaması yapar.
	mux.HandleFunc("GET /ws", wsHandler.HandleConnection)
}
