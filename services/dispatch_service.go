// Package services — DispatchService: bildirim fan-out koordinatörü.
//
// Bildirim üretimi GİZLİ hook'larla değil, açık service çağrılarıyla tetiklenir:
// CommentService yorum kaydettikten sonra DispatchCommentNotifications'ı,
// AuthService tanınmayan cihaz gördüğünde DispatchDeviceAlert'i çağırır.
// Akışı okumak için tek yapman gereken çağrı zincirini takip etmek.
//
// Fan-out akışı:
//  1. Audience: thread aboneleri − yorum yazarı
//  2. Tercih satırı olmayan alıcı tamamen atlanır
//  3. Alıcı başına bir notification satırı, kanal status'ları tercih
//     SNAPSHOT'ı ile, TEK transaction içinde yazılır
//  4. Commit sonrası: in_app → WS push; email/sms → önce task id kolonuna
//     "pending" sentinel, sonra enqueue, sonra task'ın KENDİ id'si geri yazılır
//
// Task id backfill best-effort'tur: geri yazma başarısız olursa loglanır ve
// sentinel yerinde kalır — teslimat etkilenmez, sadece correlation kaybolur.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/akinalp/smartnotify/database"
	"github.com/akinalp/smartnotify/models"
	"github.com/akinalp/smartnotify/pkg"
	"github.com/akinalp/smartnotify/pkg/email"
	"github.com/akinalp/smartnotify/pkg/sms"
	"github.com/akinalp/smartnotify/pkg/taskqueue"
	"github.com/akinalp/smartnotify/repository"
	"github.com/akinalp/smartnotify/ws"
)

// Task kind'ları — queue'ya Register edilen handler isimleri.
const (
	TaskSendEmail   = "notification.send_email"
	TaskSendSMS     = "notification.send_sms"
	TaskSendSummary = "notification.send_summary"
)

// channelTaskPayload, email/sms/özet gönderim task'larının payload'ı.
// Sadece notification id taşır — handler mesajı çalışma ANINDA DB'den okur,
// böylece bu arada kapatılmış kanallar veya güncellenmiş mesajlar görülür.
type channelTaskPayload struct {
	NotificationID string `json:"notification_id"`
}

// DispatchService, bildirim üretim ve teslimat koordinasyon interface'i.
type DispatchService interface {
	// RegisterTaskHandlers, email/sms/özet task handler'larını queue'ya kaydeder.
	// main.go'da queue.Start'tan ÖNCE çağrılır.
	RegisterTaskHandlers(queue taskqueue.Queue)
	// DispatchCommentNotifications, yeni yorum için fan-out yapar.
	// CommentService.Create tarafından, yorum kaydedildikten sonra çağrılır.
	DispatchCommentNotifications(ctx context.Context, comment *models.Comment) error
	// DispatchDeviceAlert, tanınmayan cihaz girişi için güvenlik bildirimi üretir.
	// AuthService.Login tarafından çağrılır.
	DispatchDeviceAlert(ctx context.Context, user *models.User, device *models.KnownDevice) error
	// DispatchSummary, bir kullanıcının haftalık okunmamış özetini üretir.
	// SummaryCollector tarafından tarama başına alıcı başına bir kez çağrılır.
	DispatchSummary(ctx context.Context, digest *models.UnreadDigest) error
}

// dispatchService, DispatchService implementasyonu.
type dispatchService struct {
	db          *sql.DB
	notifRepo   repository.NotificationRepository
	prefRepo    repository.PreferenceRepository
	subRepo     repository.SubscriptionRepository
	threadRepo  repository.ThreadRepository
	userRepo    repository.UserRepository
	queue       taskqueue.Queue
	emailSender email.EmailSender
	smsSender   sms.SMSSender
	hub         ws.EventPublisher
}

// NewDispatchService, constructor.
//
// db parametresi fan-out transaction'ı içindir: alıcı başına INSERT'ler
// database.WithTx ile tek transaction'da toplanır — repository'ler TxQuerier
// aldığı için tx üzerinden yeniden kurulur.
func NewDispatchService(
	db *sql.DB,
	notifRepo repository.NotificationRepository,
	prefRepo repository.PreferenceRepository,
	subRepo repository.SubscriptionRepository,
	threadRepo repository.ThreadRepository,
	userRepo repository.UserRepository,
	queue taskqueue.Queue,
	emailSender email.EmailSender,
	smsSender sms.SMSSender,
	hub ws.EventPublisher,
) DispatchService {
	return &dispatchService{
		db:          db,
		notifRepo:   notifRepo,
		prefRepo:    prefRepo,
		subRepo:     subRepo,
		threadRepo:  threadRepo,
		userRepo:    userRepo,
		queue:       queue,
		emailSender: emailSender,
		smsSender:   smsSender,
		hub:         hub,
	}
}

func (s *dispatchService) RegisterTaskHandlers(queue taskqueue.Queue) {
	queue.Register(TaskSendEmail, s.handleSendEmail)
	queue.Register(TaskSendSMS, s.handleSendSMS)
	queue.Register(TaskSendSummary, s.handleSendSummary)
}

func (s *dispatchService) DispatchCommentNotifications(ctx context.Context, comment *models.Comment) error {
	thread, err := s.threadRepo.GetByID(ctx, comment.ThreadID)
	if err != nil {
		return fmt.Errorf("failed to load thread for dispatch: %w", err)
	}

	author, err := s.userRepo.GetByID(ctx, comment.AuthorID)
	if err != nil {
		return fmt.Errorf("failed to load author for dispatch: %w", err)
	}

	subscriberIDs, err := s.subRepo.GetSubscriberIDs(ctx, comment.ThreadID)
	if err != nil {
		return err
	}

	// Audience: aboneler − yorum yazarı. Kimse kendi yorumu için bildirim almaz.
	recipients := make([]string, 0, len(subscriberIDs))
	for _, id := range subscriberIDs {
		if id != comment.AuthorID {
			recipients = append(recipients, id)
		}
	}

	if len(recipients) == 0 {
		return nil
	}

	prefs, err := s.prefRepo.GetByUsers(ctx, recipients)
	if err != nil {
		return err
	}

	message := fmt.Sprintf("%s commented on %q", author.Username, thread.Title)

	// Alıcı başına bir satır — TEK transaction. Yarısı yazılmış fan-out olmaz.
	var created []models.Notification
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		txNotifRepo := repository.NewSQLiteNotificationRepo(tx)

		for _, userID := range recipients {
			pref, ok := prefs[userID]
			if !ok {
				// Tercih satırı yok → bu alıcıya bildirim üretilmez
				continue
			}

			n := models.Notification{
				UserID:      userID,
				ActorID:     &comment.AuthorID,
				ThreadID:    &comment.ThreadID,
				CommentID:   &comment.ID,
				Kind:        models.KindComment,
				Message:     message,
				InAppStatus: pref.InAppEnabled,
				EmailStatus: pref.EmailEnabled,
				SMSStatus:   pref.SMSEnabled,
			}

			// Tüm kanalları kapalı alıcı da satır alır — olay kaydı
			// teslimattan bağımsızdır.
			if err := txNotifRepo.Create(ctx, &n); err != nil {
				return err
			}
			created = append(created, n)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.scheduleDeliveries(ctx, created)
	return nil
}

func (s *dispatchService) DispatchDeviceAlert(ctx context.Context, user *models.User, device *models.KnownDevice) error {
	// Tercih satırı olmayan kullanıcıya device alert de üretilmez —
	// comment fan-out ile aynı politika, tüm path'lerde tutarlı.
	pref, err := s.prefRepo.GetByUser(ctx, user.ID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil
		}
		return err
	}

	n := models.Notification{
		UserID:      user.ID,
		Kind:        models.KindDeviceAlert,
		Message:     "New login to your account from an unrecognized device",
		InAppStatus: pref.InAppEnabled,
		EmailStatus: pref.EmailEnabled,
		SMSStatus:   pref.SMSEnabled,
	}

	if err := s.notifRepo.Create(ctx, &n); err != nil {
		return err
	}

	s.scheduleDeliveries(ctx, []models.Notification{n})

	// Mesaj zenginleştirme GÖNDERİM PLANLANDIKTAN sonra yapılır: kayıtlı
	// bildirimde cihaz detayları görünür; mesajı çoktan okumuş bir sender
	// kısa metni göndermiş olabilir — kabul edilen davranış.
	enriched := fmt.Sprintf("%s (ip: %s, device: %s)", n.Message, device.IP, device.UserAgent)
	if err := s.notifRepo.UpdateMessage(ctx, n.ID, enriched); err != nil {
		log.Printf("[dispatch] failed to enrich device alert %s: %v", n.ID, err)
	}

	return nil
}

// DispatchSummary, haftalık özet bildirimini üretir.
//
// Özet bir in-app bildirimidir: alıcı başına bir KindSummary satırı yazılır
// ve in_app kanalı açıksa WS push yapılır. Email kanalı açıksa aynı satır
// için özet email task'ı da kuyruğa girer — email, in-app kaydın üzerine
// bir ektir, yerine geçmez. Özetler SMS'e hiç gitmez.
func (s *dispatchService) DispatchSummary(ctx context.Context, digest *models.UnreadDigest) error {
	n := models.Notification{
		UserID:      digest.UserID,
		Kind:        models.KindSummary,
		Message:     fmt.Sprintf("You have %d unread notifications from this week", digest.UnreadCount),
		InAppStatus: digest.InAppEnabled,
		EmailStatus: digest.EmailEnabled,
	}

	if err := s.notifRepo.Create(ctx, &n); err != nil {
		return err
	}

	if n.InAppStatus {
		s.hub.BroadcastToUser(n.UserID, ws.Event{
			Op:   ws.OpNotificationCreate,
			Data: &n,
		})
	}
	if n.EmailStatus {
		// Özet email'i kendi task kind'ı ile gider — konu satırı farklı.
		s.scheduleChannel(ctx, n.ID, models.ChannelEmail, TaskSendSummary)
	}

	return nil
}

// scheduleDeliveries, commit edilmiş bildirimlerin kanal teslimatlarını başlatır.
func (s *dispatchService) scheduleDeliveries(ctx context.Context, notifications []models.Notification) {
	for i := range notifications {
		n := &notifications[i]

		if n.InAppStatus {
			// In-app kanalının task'ı yok — WS push anında yapılır.
			// Kullanıcı offline ise hub sessizce atlar, satır zaten DB'de.
			s.hub.BroadcastToUser(n.UserID, ws.Event{
				Op:   ws.OpNotificationCreate,
				Data: n,
			})
		}

		if n.EmailStatus {
			s.scheduleChannel(ctx, n.ID, models.ChannelEmail, TaskSendEmail)
		}
		if n.SMSStatus {
			s.scheduleChannel(ctx, n.ID, models.ChannelSMS, TaskSendSMS)
		}
	}
}

// scheduleChannel, tek bir kanalın gönderim task'ını kuyruğa alır.
//
// Sıralama önemli:
//  1. "pending" sentinel yaz — enqueue ile backfill arasında çökersek
//     kayıtta "kanal istendi ama id bilinmiyor" izi kalır
//  2. Enqueue — task'ın uuid'i alınır
//  3. Task'ın KENDİ id'sini bu satıra geri yaz. Her bildirim kendi
//     task'ına bağlanır; bir başka bildirimin id'si asla kopyalanmaz.
func (s *dispatchService) scheduleChannel(ctx context.Context, notificationID string, channel models.Channel, kind string) {
	if err := s.notifRepo.SetChannelTaskID(ctx, notificationID, channel, models.TaskIDPending); err != nil {
		log.Printf("[dispatch] failed to mark %s pending for %s: %v", channel, notificationID, err)
		return
	}

	handle, err := s.queue.Enqueue(ctx, kind, channelTaskPayload{NotificationID: notificationID})
	if err != nil {
		log.Printf("[dispatch] failed to enqueue %s for %s: %v", channel, notificationID, err)
		return
	}

	if err := s.notifRepo.SetChannelTaskID(ctx, notificationID, channel, handle.ID); err != nil {
		log.Printf("[dispatch] failed to record %s task id for %s: %v", channel, notificationID, err)
	}
}

// ─── Task Handlers ───

// handleSendEmail, email kanalı gönderim task handler'ı.
func (s *dispatchService) handleSendEmail(ctx context.Context, payload []byte) error {
	return s.deliverEmail(ctx, payload, "New notification — smartnotify")
}

// handleSendSummary, haftalık özet email task handler'ı. Özet bildirimi
// satırı DispatchSummary'de çoktan yazılmıştır; burada sadece o satırın
// email kanalı, özet konu satırıyla teslim edilir.
func (s *dispatchService) handleSendSummary(ctx context.Context, payload []byte) error {
	return s.deliverEmail(ctx, payload, "Your weekly summary — smartnotify")
}

// deliverEmail, email kanalı teslimatının ortak gövdesi.
//
// Handler sözleşmesi:
//   - error dönerse queue retry eder — task id yerinde kalır
//   - sender (false, nil) derse kanal kapatılır: status=false, task id NULL
//   - bildirim silinmiş/kanal kapatılmışsa sessizce biter
func (s *dispatchService) deliverEmail(ctx context.Context, payload []byte, subject string) error {
	var p channelTaskPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("invalid email task payload: %w", err)
	}

	n, err := s.notifRepo.GetByID(ctx, p.NotificationID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil // bildirim silinmiş — yapılacak iş yok
		}
		return err
	}
	if !n.EmailStatus {
		return nil // kanal bu arada kapatılmış
	}

	user, err := s.userRepo.GetByID(ctx, n.UserID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil
		}
		return err
	}

	toEmail := ""
	if user.Email != nil {
		toEmail = *user.Email
	}

	delivered, err := s.emailSender.Send(ctx, toEmail, subject, email.NotificationHTML(n.Message))
	if err != nil {
		return err // geçici hata — retry
	}

	if !delivered {
		// Kalıcı ret — kanal kapatılır, task id temizlenir
		if err := s.notifRepo.MarkChannelFailed(ctx, n.ID, models.ChannelEmail); err != nil {
			log.Printf("[dispatch] failed to mark email failed for %s: %v", n.ID, err)
		}
	}

	return nil
}

// handleSendSMS, SMS kanalı gönderim task handler'ı.
// Mesaj sender'a verilmeden önce 160 karaktere kırpılır.
func (s *dispatchService) handleSendSMS(ctx context.Context, payload []byte) error {
	var p channelTaskPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("invalid sms task payload: %w", err)
	}

	n, err := s.notifRepo.GetByID(ctx, p.NotificationID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil
		}
		return err
	}
	if !n.SMSStatus {
		return nil
	}

	user, err := s.userRepo.GetByID(ctx, n.UserID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil
		}
		return err
	}

	toNumber := ""
	if user.PhoneNumber != nil {
		toNumber = *user.PhoneNumber
	}

	delivered, err := s.smsSender.Send(ctx, toNumber, sms.Truncate(n.Message))
	if err != nil {
		return err
	}

	if !delivered {
		if err := s.notifRepo.MarkChannelFailed(ctx, n.ID, models.ChannelSMS); err != nil {
			log.Printf("[dispatch] failed to mark sms failed for %s: %v", n.ID, err)
		}
	}

	return nil
}
