package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/akinalp/smartnotify/models"
	"github.com/akinalp/smartnotify/pkg"
	"github.com/akinalp/smartnotify/pkg/ratelimit"
	"github.com/akinalp/smartnotify/services"
)

// ThreadHandler, thread ve yorum endpoint'lerini yöneten struct.
type ThreadHandler struct {
	threadService  services.ThreadService
	commentService services.CommentService
	commentLimiter *ratelimit.CommentRateLimiter
}

// NewThreadHandler, constructor.
// commentLimiter: Yorum spam koruması. nil ise rate limiting devre dışı kalır.
func NewThreadHandler(
	threadService services.ThreadService,
	commentService services.CommentService,
	commentLimiter *ratelimit.CommentRateLimiter,
) *ThreadHandler {
	return &ThreadHandler{
		threadService:  threadService,
		commentService: commentService,
		commentLimiter: commentLimiter,
	}
}

// List godoc
// GET /api/threads
func (h *ThreadHandler) List(w http.ResponseWriter, r *http.Request) {
	threads, err := h.threadService.GetAll(r.Context())
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, threads)
}

// Create godoc
// POST /api/threads
// Body: { "title": "..." }
// Oluşturan kullanıcı otomatik olarak abone olur.
func (h *ThreadHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req models.CreateThreadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	thread, err := h.threadService.Create(r.Context(), user.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, thread)
}

// Get godoc
// GET /api/threads/{id}
// Thread'i yorumlarıyla birlikte döner.
func (h *ThreadHandler) Get(w http.ResponseWriter, r *http.Request) {
	threadID := r.PathValue("id")

	detail, err := h.threadService.GetDetail(r.Context(), threadID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, detail)
}

// Subscribe godoc
// POST /api/threads/{id}/subscribe
// Idempotent — tekrar abone olmak hata değildir.
func (h *ThreadHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	if err := h.threadService.Subscribe(r.Context(), r.PathValue("id"), user.ID); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "subscribed"})
}

// Unsubscribe godoc
// DELETE /api/threads/{id}/subscribe
func (h *ThreadHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	if err := h.threadService.Unsubscribe(r.Context(), r.PathValue("id"), user.ID); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "unsubscribed"})
}

// CreateComment godoc
// POST /api/threads/{id}/comments
// Body: { "body": "..." }
// Yorum kaydedilir ve abonelere bildirim fan-out'u tetiklenir.
//
// Rate limiting kullanıcı bazlıdır: her yorum fan-out tetiklediği için
// spam, başka kullanıcıların email/sms kanallarını doldurur.
func (h *ThreadHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	if h.commentLimiter != nil && !h.commentLimiter.Allow(user.ID) {
		retryAfter := h.commentLimiter.CooldownSeconds(user.ID)
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
		pkg.ErrorWithMessage(w, http.StatusTooManyRequests,
			fmt.Sprintf("you are commenting too fast, please try again in %s",
				ratelimit.FormatRetryMessage(retryAfter)))
		return
	}

	var req models.CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	comment, err := h.commentService.Create(r.Context(), user.ID, r.PathValue("id"), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, comment)
}
