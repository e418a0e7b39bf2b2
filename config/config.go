// Package config, uygulamanın tüm konfigürasyonunu merkezi olarak yönetir.
// Environment variable'lardan okur, .env dosyasını da destekler.
//
// Go'da "struct" bir veri yapısıdır — birden fazla field'ı bir arada tutar.
// Config struct'ı tüm ayarları tek bir yerde toplar, böylece
// her yerde ayrı ayrı os.Getenv() çağırmak yerine tek bir Config nesnesi taşırız.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config, uygulamanın tüm konfigürasyon değerlerini taşır.
// Her alt bölüm ayrı bir struct — Single Responsibility: her struct tek bir concern'ü temsil eder.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Email    EmailConfig
	SMS      SMSConfig
	Queue    QueueConfig
	Summary  SummaryConfig
}

// ServerConfig, HTTP server ayarları.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig, SQLite database ayarları.
type DatabaseConfig struct {
	Path string // SQLite dosya yolu (ör: ./data/smartnotify.db)
}

// JWTConfig, JWT token ayarları.
type JWTConfig struct {
	Secret             string // Token imzalama anahtarı — GİZLİ TUTULMALI
	AccessTokenExpiry  int    // Dakika cinsinden (varsayılan: 15)
	RefreshTokenExpiry int    // Gün cinsinden (varsayılan: 7)
}

// EmailConfig, email kanalı (Resend) ayarları.
// ResendAPIKey boşsa email gönderimi mock sender'a düşer —
// notification satırları yine yazılır ama gerçek email çıkmaz.
type EmailConfig struct {
	ResendAPIKey string
	FromEmail    string // Gönderici adresi (ör: notify@smartnotify.app)
}

// SMSConfig, SMS kanalı ayarları.
type SMSConfig struct {
	FromNumber string // Gönderici numara — mock sender sadece loglar
}

// QueueConfig, async task queue ayarları.
type QueueConfig struct {
	Workers        int // Worker goroutine sayısı (varsayılan: 4)
	MaxRetries     int // Handler hatasında maksimum tekrar deneme (varsayılan: 3)
	BackoffSeconds int // Exponential backoff taban süresi (varsayılan: 60)
}

// SummaryConfig, haftalık okunmamış bildirim özeti ayarları.
type SummaryConfig struct {
	IntervalHours int // Özet tarama aralığı (varsayılan: 168 = 7 gün)
}

// Load, environment variable'lardan Config oluşturur.
// .env dosyası varsa önce onu yükler (development kolaylığı için).
//
// Go'da error handling: Go'da exception/try-catch yoktur.
// Fonksiyonlar hata durumunda (value, error) tuple'ı döner.
// Çağıran taraf her zaman error'ı kontrol ETMEK ZORUNDADIR.
func Load() (*Config, error) {
	// .env dosyasını yükle — dosya yoksa hata vermez, sessizce devam eder.
	// Production'da bu dosya olmaz, gerçek env variable'lar kullanılır.
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "9090"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	accessExpiry, err := strconv.Atoi(getEnv("JWT_ACCESS_EXPIRY_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_ACCESS_EXPIRY_MINUTES: %w", err)
	}

	refreshExpiry, err := strconv.Atoi(getEnv("JWT_REFRESH_EXPIRY_DAYS", "7"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_REFRESH_EXPIRY_DAYS: %w", err)
	}

	workers, err := strconv.Atoi(getEnv("QUEUE_WORKERS", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid QUEUE_WORKERS: %w", err)
	}

	maxRetries, err := strconv.Atoi(getEnv("QUEUE_MAX_RETRIES", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid QUEUE_MAX_RETRIES: %w", err)
	}

	backoff, err := strconv.Atoi(getEnv("QUEUE_BACKOFF_SECONDS", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid QUEUE_BACKOFF_SECONDS: %w", err)
	}

	summaryInterval, err := strconv.Atoi(getEnv("SUMMARY_INTERVAL_HOURS", "168"))
	if err != nil {
		return nil, fmt.Errorf("invalid SUMMARY_INTERVAL_HOURS: %w", err)
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "./data/smartnotify.db"),
		},
		JWT: JWTConfig{
			Secret:             jwtSecret,
			AccessTokenExpiry:  accessExpiry,
			RefreshTokenExpiry: refreshExpiry,
		},
		Email: EmailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			FromEmail:    getEnv("RESEND_FROM", ""),
		},
		SMS: SMSConfig{
			FromNumber: getEnv("SMS_FROM", ""),
		},
		Queue: QueueConfig{
			Workers:        workers,
			MaxRetries:     maxRetries,
			BackoffSeconds: backoff,
		},
		Summary: SummaryConfig{
			IntervalHours: summaryInterval,
		},
	}

	return cfg, nil
}

// Addr, HTTP server'ın dinleyeceği adresi döner (ör: "0.0.0.0:9090").
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv, environment variable'ı okur, yoksa fallback değeri döner.
func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
