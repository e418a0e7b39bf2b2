package models

import (
	"fmt"
	"time"
)

// Channel, bir bildirim kanalını temsil eder.
// Go'da enum yoktur — typed constant'lar kullanılır.
type Channel string

// İzin verilen kanal değerleri.
const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// NotificationKind, bildirimin ne için üretildiğini belirtir.
type NotificationKind string

const (
	// KindComment: bir thread abonesine, thread'e yorum geldiğinde üretilir.
	KindComment NotificationKind = "comment"
	// KindDeviceAlert: tanınmayan cihazdan giriş yapıldığında üretilir.
	KindDeviceAlert NotificationKind = "device_alert"
	// KindSummary: haftalık okunmamış özet. Collector her taramada alıcı
	// başına bir özet satırı üretir; email kanalı açıksa aynı satır için
	// özet email'i de gider.
	KindSummary NotificationKind = "summary"
)

// TaskIDPending, kanal gönderimi henüz kuyruğa girmeden önce task id
// kolonuna yazılan sentinel değer. Enqueue başarılı olunca o kanalın
// KENDİ task id'si ile değiştirilir — her notification kendi task'ına
// bağlanır, ilk task'ın id'si diğerlerine kopyalanmaz.
const TaskIDPending = "pending"

// Notification, bir kullanıcıya üretilmiş tek bir bildirimi temsil eder.
//
// Kanal status kolonları dispatch anındaki preference SNAPSHOT'ıdır:
// kullanıcı sonradan tercihlerini değiştirse bile geçmiş bildirimlerin
// hangi kanallardan istendiği kaydı bozulmaz. Tüm kanalları kapalı olan
// bir alıcı için bile satır yazılır — olay kaydı teslimattan bağımsızdır.
type Notification struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	ActorID     *string          `json:"actor_id"`
	ThreadID    *string          `json:"thread_id"`
	CommentID   *string          `json:"comment_id"`
	Kind        NotificationKind `json:"kind"`
	Message     string           `json:"message"`
	InAppStatus bool             `json:"in_app_status"`
	EmailStatus bool             `json:"email_status"`
	SMSStatus   bool             `json:"sms_status"`
	EmailTaskID *string          `json:"email_task_id"`
	SMSTaskID   *string          `json:"sms_task_id"`
	IsRead      bool             `json:"is_read"`
	CreatedAt   time.Time        `json:"created_at"`
}

// UnreadDigest, haftalık özet taramasının tek kullanıcılık sonucu:
// pencere içindeki okunmamış bildirim sayısı + dispatch anında snapshot
// alınacak kanal tercihleri.
type UnreadDigest struct {
	UserID       string `json:"user_id"`
	InAppEnabled bool   `json:"in_app_enabled"`
	EmailEnabled bool   `json:"email_enabled"`
	UnreadCount  int    `json:"unread_count"`
}

// MarkReadRequest, POST /api/notifications/read isteği.
type MarkReadRequest struct {
	IDs []string `json:"ids"`
}

// Validate, MarkReadRequest'i kontrol eder.
func (r *MarkReadRequest) Validate() error {
	if len(r.IDs) == 0 {
		return fmt.Errorf("ids is required")
	}
	if len(r.IDs) > 500 {
		return fmt.Errorf("at most 500 ids per request")
	}
	for _, id := range r.IDs {
		if id == "" {
			return fmt.Errorf("ids must not contain empty values")
		}
	}
	return nil
}
