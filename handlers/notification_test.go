// HTTP katmanı testleri — gerçek service + middleware zinciri ile,
// httptest üzerinden. Middleware package'ı handlers'ı import ettiği için
// testler external test package'tadır (handlers_test).
package handlers_test

import (
	"context"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akinalp/smartnotify/database"
	"github.com/akinalp/smartnotify/handlers"
	"github.com/akinalp/smartnotify/middleware"
	"github.com/akinalp/smartnotify/models"
	"github.com/akinalp/smartnotify/pkg/taskqueue"
	"github.com/akinalp/smartnotify/repository"
	"github.com/akinalp/smartnotify/services"
)

// nopDispatcher, HTTP testlerinde fan-out'u devre dışı bırakır.
type nopDispatcher struct{}

func (nopDispatcher) RegisterTaskHandlers(queue taskqueue.Queue) {}
func (nopDispatcher) DispatchCommentNotifications(ctx context.Context, comment *models.Comment) error {
	return nil
}
func (nopDispatcher) DispatchDeviceAlert(ctx context.Context, user *models.User, device *models.KnownDevice) error {
	return nil
}
func (nopDispatcher) DispatchSummary(ctx context.Context, digest *models.UnreadDigest) error {
	return nil
}

// newAPIServer, auth + notification endpoint'lerini gerçek service'lerle
// bağlayan test server'ı ve bir access token'ı döner.
func newAPIServer(t *testing.T) (*http.ServeMux, string) {
	t.Helper()

	migrationsFS, err := fs.Sub(database.EmbeddedMigrations, "migrations")
	if err != nil {
		t.Fatalf("failed to access embedded migrations: %v", err)
	}
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"), migrationsFS)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	userRepo := repository.NewSQLiteUserRepo(db.Conn)
	authService := services.NewAuthService(
		db.Conn,
		userRepo,
		repository.NewSQLiteSessionRepo(db.Conn),
		repository.NewSQLiteDeviceRepo(db.Conn),
		nopDispatcher{},
		"test-secret", 15, 7,
	)

	tokens, err := authService.Register(context.Background(), &models.CreateUserRequest{
		Username: "alice",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	notifHandler := handlers.NewNotificationHandler(
		services.NewNotificationService(repository.NewSQLiteNotificationRepo(db.Conn)),
	)

	authMw := middleware.NewAuthMiddleware(authService, userRepo)
	mux := http.NewServeMux()
	mux.Handle("GET /api/notifications", authMw.Require(http.HandlerFunc(notifHandler.List)))
	mux.Handle("GET /api/notifications/unread", authMw.Require(http.HandlerFunc(notifHandler.Unread)))

	return mux, tokens.AccessToken
}

func TestNotificationListRequiresAuth(t *testing.T) {
	mux, _ := newAPIServer(t)

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"malformed header", "Token abc", http.StatusUnauthorized},
		{"invalid token", "Bearer not.a.jwt", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestNotificationList(t *testing.T) {
	mux, token := newAPIServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"success":true`) {
		t.Errorf("response should follow the APIResponse envelope, got %s", rec.Body.String())
	}
}

func TestNotificationListInvalidLimit(t *testing.T) {
	mux, token := newAPIServer(t)

	for _, limit := range []string{"abc", "0", "-5"} {
		req := httptest.NewRequest(http.MethodGet, "/api/notifications?limit="+limit, nil)
		req.Header.Set("Authorization", "Bearer "+token)

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s status = %d, want 400", limit, rec.Code)
		}
	}
}
