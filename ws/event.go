// Package ws, WebSocket bağlantı yönetimi ve gerçek zamanlı bildirim dağıtımını sağlar.
//
// Mimari:
// - Hub: Tüm bağlantıları yöneten merkezi yapı (Observer pattern)
// - Client: Her WebSocket bağlantısını temsil eder
// - Event: Client-server arası iletilen mesaj formatı
//
// Event akışı:
// 1. Bir yorum kaydedilir → DispatchService fan-out yapar
// 2. In-app kanalı açık her alıcı için Hub.BroadcastToUser çağrılır
// 3. Hub, event'i o kullanıcının TÜM bağlantılarına iletir (çoklu tab)
// 4. Her client'ın WritePump'ı event'i WebSocket'e yazar
package ws

// Event, WebSocket üzerinden iletilen bir mesajı temsil eder.
//
// Op (operation): Event türü — "notification_create", "heartbeat" vb.
// Data: Event'e özgü payload — bildirim objesi vb.
// Seq (sequence number): Her outbound event'e verilen artan sayı.
//   Frontend eksik event tespit etmek için seq'i takip eder.
//   Örnek: seq 5'ten sonra seq 7 gelirse, 6 kaybolmuş demektir.
type Event struct {
	Op   string `json:"op"`
	Data any    `json:"d,omitempty"`
	Seq  int64  `json:"seq,omitempty"`
}

// Client → Server operasyonları
const (
	OpHeartbeat = "heartbeat" // Client her 30sn'de gönderir — "hâlâ bağlıyım" sinyali
)

// Server → Client operasyonları
const (
	OpHeartbeatAck       = "heartbeat_ack"       // Heartbeat'e yanıt — "seni duydum"
	OpNotificationCreate = "notification_create" // Yeni bildirim oluşturuldu — payload: models.Notification
)
