package repository

import (
	"context"
	"time"

	"github.com/akinalp/smartnotify/models"
)

// NotificationRepository, bildirim satırları için interface.
//
// Dispatch akışının repository ihtiyaçları:
//   - Create: fan-out transaction'ı içinde alıcı başına bir satır
//   - SetChannelTaskID: enqueue sonrası HER satıra kendi task id'si
//   - MarkChannelFailed: sender "teslim edilemedi" dediğinde status + task id temizliği
//   - UpdateMessage: device alert mesajının gönderim sonrası zenginleştirilmesi
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	// GetByUser, kullanıcının bildirimlerini yeniden eskiye döner.
	GetByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	GetUnread(ctx context.Context, userID string) ([]models.Notification, error)
	// GetOwnedIDs, verilen id'lerden bu kullanıcıya ait olanların set'ini döner.
	// Mark-read validasyonu bunun üzerinden yapılır: set'te olmayan her id geçersizdir.
	GetOwnedIDs(ctx context.Context, userID string, ids []string) (map[string]bool, error)
	MarkRead(ctx context.Context, userID string, ids []string) error
	// SetChannelTaskID, email/sms task id kolonunu günceller.
	// Enqueue ÖNCESİ models.TaskIDPending, enqueue SONRASI gerçek id yazılır.
	SetChannelTaskID(ctx context.Context, id string, channel models.Channel, taskID string) error
	// MarkChannelFailed, kanal status'unu false'a çeker ve task id'yi temizler.
	// Sender hatasında ÇAĞRILMAZ — hata retry edilir; sadece sender'ın kendisi
	// "teslim edilmedi" dediğinde kullanılır.
	MarkChannelFailed(ctx context.Context, id string, channel models.Channel) error
	UpdateMessage(ctx context.Context, id, message string) error
	// GetUnreadDigests, haftalık özet taraması: since'ten bu yana üretilmiş
	// okunmamış bildirimi olan kullanıcıların sayımlarını, kanal tercihleri
	// ile birlikte döner. Özet satırlarının kendisi sayılmaz.
	GetUnreadDigests(ctx context.Context, since time.Time) ([]models.UnreadDigest, error)
}
