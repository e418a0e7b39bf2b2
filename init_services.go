// Package main — Service katmanı başlatma.
//
// initServices, tüm service implementasyonlarını oluşturur.
// Her service, ihtiyaç duyduğu repository interface'lerini ve diğer
// dependency'leri constructor injection ile alır.
//
// Sıralama kuralı: DispatchService önce oluşturulur — AuthService (device
// alert) ve CommentService (fan-out) ona bağımlıdır.
package main

import (
	"database/sql"
	"log"
	"time"

	"github.com/akinalp/smartnotify/config"
	"github.com/akinalp/smartnotify/pkg/email"
	"github.com/akinalp/smartnotify/pkg/ratelimit"
	"github.com/akinalp/smartnotify/pkg/sms"
	"github.com/akinalp/smartnotify/pkg/taskqueue"
	"github.com/akinalp/smartnotify/services"
	"github.com/akinalp/smartnotify/ws"
)

// Services, tüm service instance'larını tutan container struct.
type Services struct {
	Auth         services.AuthService
	Thread       services.ThreadService
	Comment      services.CommentService
	Notification services.NotificationService
	Preference   services.PreferenceService
	Dispatch     services.DispatchService
}

// RateLimiters, tüm rate limiter instance'larını tutan container.
type RateLimiters struct {
	Login   *ratelimit.LoginRateLimiter
	Comment *ratelimit.CommentRateLimiter
}

// initServices, tüm service'leri ve rate limiter'ları oluşturur.
//
// hub ve queue service'ler arası paylaşılan dependency'lerdir.
// Task handler kayıtları burada yapılır — caller queue.Start'ı
// initServices SONRASI çağırmalıdır.
func initServices(
	db *sql.DB,
	repos *Repositories,
	hub ws.EventPublisher,
	queue taskqueue.Queue,
	cfg *config.Config,
) (*Services, *RateLimiters, services.SummaryCollector) {
	// ─── Email sender (opsiyonel) ───
	var emailSender email.EmailSender
	if cfg.Email.ResendAPIKey != "" && cfg.Email.FromEmail != "" {
		emailSender = email.NewResendSender(cfg.Email.ResendAPIKey, cfg.Email.FromEmail)
		log.Printf("[main] email sender enabled (from=%s)", cfg.Email.FromEmail)
	} else {
		emailSender = email.NewLogSender()
		log.Println("[main] email sender in log-only mode (RESEND_API_KEY or RESEND_FROM not set)")
	}

	// ─── SMS sender ───
	smsSender := sms.NewLogSender(cfg.SMS.FromNumber)

	// ─── DispatchService — diğer service'lerden ÖNCE ───
	dispatchService := services.NewDispatchService(
		db,
		repos.Notification, repos.Preference, repos.Subscription,
		repos.Thread, repos.User,
		queue, emailSender, smsSender, hub,
	)
	dispatchService.RegisterTaskHandlers(queue)

	// ─── Diğer service'ler ───
	authService := services.NewAuthService(
		db, repos.User, repos.Session, repos.Device, dispatchService,
		cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry, cfg.JWT.RefreshTokenExpiry,
	)

	threadService := services.NewThreadService(db, repos.Thread, repos.Subscription, repos.Comment)
	commentService := services.NewCommentService(repos.Comment, repos.Thread, dispatchService)
	notificationService := services.NewNotificationService(repos.Notification)
	preferenceService := services.NewPreferenceService(repos.Preference)

	// ─── Summary Collector ───
	summaryCollector := services.NewSummaryCollector(
		repos.Notification, dispatchService,
		time.Duration(cfg.Summary.IntervalHours)*time.Hour,
	)

	// ─── Rate Limiters ───
	loginLimiter := ratelimit.NewLoginRateLimiter(5, 2*time.Minute)
	commentLimiter := ratelimit.NewCommentRateLimiter(5, 10*time.Second, 30*time.Second)

	svcs := &Services{
		Auth:         authService,
		Thread:       threadService,
		Comment:      commentService,
		Notification: notificationService,
		Preference:   preferenceService,
		Dispatch:     dispatchService,
	}

	return svcs, &RateLimiters{Login: loginLimiter, Comment: commentLimiter}, summaryCollector
}
