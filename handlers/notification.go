package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/akinalp/smartnotify/models"
	"github.com/akinalp/smartnotify/pkg"
	"github.com/akinalp/smartnotify/services"
)

// NotificationHandler, bildirim endpoint'lerini yöneten struct.
// Tüm endpoint'ler auth gerektirir — herkes yalnızca kendi bildirimlerini görür.
type NotificationHandler struct {
	notificationService services.NotificationService
}

// NewNotificationHandler, constructor.
func NewNotificationHandler(notificationService services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// List godoc
// GET /api/notifications?limit=50
// Kullanıcının bildirimlerini yeniden eskiye döner.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			pkg.ErrorWithMessage(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	notifications, err := h.notificationService.GetByUser(r.Context(), user.ID, limit)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, notifications)
}

// Unread godoc
// GET /api/notifications/unread
func (h *NotificationHandler) Unread(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	notifications, err := h.notificationService.GetUnread(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, notifications)
}

// MarkRead godoc
// POST /api/notifications/read
// Body: { "ids": ["...", "..."] }
//
// Ya hepsi ya hiçbiri: geçersiz tek bir id bile tüm isteği düşürür,
// hata mesajında geçersiz id'ler listelenir.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req models.MarkReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.notificationService.MarkRead(r.Context(), user.ID, &req); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]any{
		"message": "notifications marked as read",
		"count":   len(req.IDs),
	})
}
