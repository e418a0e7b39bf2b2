// Package main, smartnotify backend uygulamasının giriş noktasıdır.
//
// Bu dosyanın görevi — Dependency Injection "wire-up":
//  1. Config'i yükle
//  2. Database'i başlat (embedded migration'lar ile)
//  3. WebSocket Hub'ı başlat
//  4. Task queue'yu oluştur
//  5. Repository'leri oluştur (DB bağlantısı ile)
//  6. Service'leri oluştur (repository'ler + hub + queue ile)
//  7. Handler'ları oluştur (service'ler ile)
//  8. Route'ları bağla, CORS yapılandır
//  9. Queue worker'larını ve summary collector'ı başlat
// 10. HTTP Server'ı başlat
// 11. Graceful shutdown
//
// Global değişken YOK — her şey bu fonksiyonda oluşturulup birbirine bağlanıyor.
package main

import (
	"context"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/akinalp/smartnotify/config"
	"github.com/akinalp/smartnotify/database"
	"github.com/akinalp/smartnotify/pkg/taskqueue"
	"github.com/akinalp/smartnotify/ws"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("[main] smartnotify server starting...")

	// ─── 1. Config ───
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[main] failed to load config: %v", err)
	}
	log.Printf("[main] config loaded (port=%d)", cfg.Server.Port)

	// ─── 2. Database ───
	// Migration'lar binary'ye gömülüdür — deploy'da SQL dosyası taşınmaz.
	migrationsFS, err := fs.Sub(database.EmbeddedMigrations, "migrations")
	if err != nil {
		log.Fatalf("[main] failed to access embedded migrations: %v", err)
	}

	db, err := database.New(cfg.Database.Path, migrationsFS)
	if err != nil {
		log.Fatalf("[main] failed to initialize database: %v", err)
	}
	defer db.Close()

	// ─── 3. WebSocket Hub ───
	// Hub, tüm WebSocket bağlantılarını yöneten merkezi yapıdır.
	// `go hub.Run()` ayrı bir goroutine'de event loop başlatır.
	// Hub aynı zamanda EventPublisher interface'ini implement eder —
	// service'ler hub'a doğrudan bağımlı olmak yerine interface üzerinden erişir.
	hub := ws.NewHub()
	go hub.Run()

	// ─── 4. Task Queue ───
	// Email/SMS gönderimleri request path'inde yapılmaz — kuyruğa atılır.
	// Start, handler kayıtları SONRASI (initServices içinde yapılır) çağrılır.
	queue := taskqueue.New(taskqueue.Options{
		Workers:    cfg.Queue.Workers,
		MaxRetries: cfg.Queue.MaxRetries,
		Backoff:    time.Duration(cfg.Queue.BackoffSeconds) * time.Second,
	})

	// ─── 5-7. Repository → Service → Handler ───
	repos := initRepositories(db.Conn)
	svcs, limiters, summaryCollector := initServices(db.Conn, repos, hub, queue, cfg)
	h := initHandlers(svcs, repos, limiters, hub)

	// ─── 8. HTTP Router + CORS ───
	mux := http.NewServeMux()
	initRoutes(mux, h, svcs.Auth, repos.User)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		Debug:            false,
	})
	handler := corsHandler.Handler(mux)

	// ─── 9. Background işler ───
	queue.Start()
	summaryCollector.Start()

	// Süresi dolmuş session'ları saatte bir temizle
	sessionCleanupStop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := repos.Session.DeleteExpired(context.Background()); err != nil {
					log.Printf("[main] session cleanup failed: %v", err)
				}
			case <-sessionCleanupStop:
				return
			}
		}
	}()

	// ─── 10. HTTP Server ───
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ─── 11. Graceful Shutdown ───
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("[main] server listening on %s", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	<-done
	log.Println("[main] shutting down...")

	// Kapanış sırası:
	// 1. Summary collector — yeni tarama başlamasın
	// 2. Task queue — çalışan gönderimler tamamlansın
	// 3. WebSocket hub — client'lar kapanışı görsün
	// 4. HTTP server — mevcut request'ler bitsin (5sn timeout)
	close(sessionCleanupStop)
	summaryCollector.Stop()
	queue.Stop()
	hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("[main] forced shutdown: %v", err)
	}

	log.Println("[main] server stopped gracefully")
}
