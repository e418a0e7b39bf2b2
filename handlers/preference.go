package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akinalp/smartnotify/models"
	"github.com/akinalp/smartnotify/pkg"
	"github.com/akinalp/smartnotify/services"
)

// PreferenceHandler, bildirim kanal tercihi endpoint'lerini yöneten struct.
type PreferenceHandler struct {
	preferenceService services.PreferenceService
}

// NewPreferenceHandler, constructor.
func NewPreferenceHandler(preferenceService services.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{preferenceService: preferenceService}
}

// Get godoc
// GET /api/preferences
func (h *PreferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	pref, err := h.preferenceService.Get(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, pref)
}

// Update godoc
// PATCH /api/preferences
// Body: { "in_app_enabled": true, "email_enabled": false, "sms_enabled": true }
// Kısmi güncelleme — yalnızca gönderilen alanlar değişir.
func (h *PreferenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req models.UpdatePreferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pref, err := h.preferenceService.Update(r.Context(), user.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, pref)
}
