// Package main — Repository katmanı başlatma.
//
// initRepositories, tüm repository implementasyonlarını oluşturur.
// Her repository bir SQL.DB bağlantısı alır ve interface döner.
// main.go'daki wire-up'ı modülerleştirmek için bu dosyaya taşındı.
package main

import (
	"database/sql"

	"github.com/akinalp/smartnotify/repository"
)

// Repositories, tüm repository instance'larını tutan container struct.
//
// Neden struct? Ayrı repository değişkenleri yerine tek struct kullanmak:
// 1. Fonksiyon imzalarını temiz tutar (tek parametre yerine sekiz parametre)
// 2. Yeni repository eklendiğinde sadece struct + initRepositories güncellenir
// 3. IDE auto-complete ile kolay erişim (repos.User, repos.Thread, vb.)
type Repositories struct {
	User         repository.UserRepository
	Session      repository.SessionRepository
	Thread       repository.ThreadRepository
	Subscription repository.SubscriptionRepository
	Comment      repository.CommentRepository
	Notification repository.NotificationRepository
	Preference   repository.PreferenceRepository
	Device       repository.DeviceRepository
}

// initRepositories, veritabanı bağlantısından tüm repository'leri oluşturur.
//
// Her NewSQLite* fonksiyonu aynı *sql.DB'yi alır — Go'nun sql.DB'si
// thread-safe connection pool'dur, paylaşılması güvenlidir.
func initRepositories(conn *sql.DB) *Repositories {
	return &Repositories{
		User:         repository.NewSQLiteUserRepo(conn),
		Session:      repository.NewSQLiteSessionRepo(conn),
		Thread:       repository.NewSQLiteThreadRepo(conn),
		Subscription: repository.NewSQLiteSubscriptionRepo(conn),
		Comment:      repository.NewSQLiteCommentRepo(conn),
		Notification: repository.NewSQLiteNotificationRepo(conn),
		Preference:   repository.NewSQLitePreferenceRepo(conn),
		Device:       repository.NewSQLiteDeviceRepo(conn),
	}
}
