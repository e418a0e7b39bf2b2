// Package repository, veritabanı erişim katmanını tanımlar.
//
// Repository Pattern nedir?
// Veritabanı işlemlerini (CRUD) soyutlayan bir tasarım kalıbıdır.
// Service katmanı doğrudan SQL yazmaz — repository interface'i üzerinden çalışır.
//
// Neden interface?
// 1. Test: Mock repository yazarak DB olmadan test edebilirsin
// 2. Esneklik: SQLite'tan PostgreSQL'e geçmek istersen sadece yeni implementasyon yazarsın
// 3. SOLID (Dependency Inversion): Service, concrete struct'a değil interface'e bağımlı
//
// Go'da interface "implicit"tır — bir struct, interface'deki tüm method'ları
// implement ediyorsa otomatik olarak o interface'i sağlar.
package repository

import (
	"context"

	"github.com/akinalp/smartnotify/models"
)

// UserRepository, kullanıcı veritabanı işlemleri için interface.
//
// context.Context nedir?
// Go'da goroutine'ler arası iptal sinyali ve deadline taşıyan bir yapıdır.
// HTTP handler bir request aldığında context oluşturur — client bağlantıyı koparırsa
// context iptal olur ve devam eden DB sorgusu da durur.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// SetFirstLoginDone, first_login flag'ini false'a çeker.
	// İlk başarılı login'de BİR defa çağrılır — sonraki girişlerde
	// cihaz tanıma guard'ı normal şekilde çalışır.
	SetFirstLoginDone(ctx context.Context, userID string) error
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, id string) error
}
