// Package main — HTTP route registration.
//
// initRoutes, tüm API endpoint'lerini mux'a bağlar.
// Middleware chain helper'ı burada tanımlıdır:
//   - auth: JWT token doğrulaması
package main

import (
	"fmt"
	"net/http"

	"github.com/akinalp/smartnotify/middleware"
	"github.com/akinalp/smartnotify/repository"
	"github.com/akinalp/smartnotify/services"
)

// initRoutes, middleware chain'i kurar ve tüm endpoint'leri mux'a bağlar.
//
// Route sıralama kuralı: Literal path'ler parametrik path'lerden ÖNCE tanımlanmalı.
// Örnek: "/api/notifications/unread" → "/api/notifications/{id}" gibi bir route
// eklenirse öncesinde gelmeli, yoksa Go router "unread" kelimesini id olarak yorumlar.
func initRoutes(
	mux *http.ServeMux,
	h *Handlers,
	authService services.AuthService,
	userRepo repository.UserRepository,
) {
	// ─── Middleware ───
	authMw := middleware.NewAuthMiddleware(authService, userRepo)

	// ─── Middleware Chain Helper ───
	auth := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(http.HandlerFunc(handler))
	}

	// Health check
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","service":"smartnotify"}`)
	})

	// Auth — public endpoint'ler (token gerekmez)
	mux.HandleFunc("POST /api/auth/register", h.Auth.Register)
	mux.HandleFunc("POST /api/auth/login", h.Auth.Login)
	mux.HandleFunc("POST /api/auth/refresh", h.Auth.Refresh)
	mux.Handle("POST /api/auth/logout", auth(h.Auth.Logout))

	// User
	mux.Handle("GET /api/users/me", auth(h.Auth.Me))

	// Threads
	mux.Handle("GET /api/threads", auth(h.Thread.List))
	mux.Handle("POST /api/threads", auth(h.Thread.Create))
	mux.Handle("GET /api/threads/{id}", auth(h.Thread.Get))
	mux.Handle("POST /api/threads/{id}/subscribe", auth(h.Thread.Subscribe))
	mux.Handle("DELETE /api/threads/{id}/subscribe", auth(h.Thread.Unsubscribe))
	mux.Handle("POST /api/threads/{id}/comments", auth(h.Thread.CreateComment))

	// Notifications — literal path'ler önce
	mux.Handle("GET /api/notifications/unread", auth(h.Notification.Unread))
	mux.Handle("POST /api/notifications/read", auth(h.Notification.MarkRead))
	mux.Handle("GET /api/notifications", auth(h.Notification.List))

	// Preferences
	mux.Handle("GET /api/preferences", auth(h.Preference.Get))
	mux.Handle("PATCH /api/preferences", auth(h.Preference.Update))

	// Stats — public
	mux.HandleFunc("GET /api/stats", h.Stats.GetPublicStats)

	// WebSocket — token query parameter ile authenticate edilir
	//
	// Neden auth middleware kullanmıyoruz?
	// WebSocket upgrade sırasında tarayıcılar custom HTTP header gönderemez.
	// Bu yüzden JWT token URL query parameter olarak gönderilir:
	//   ws://server/ws?token=JWT_TOKEN
	// WS handler kendi içinde token doğrulaması yapar.
	mux.HandleFunc("GET /ws", h.WS.HandleConnection)
}
