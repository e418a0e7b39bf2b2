package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/akinalp/smartnotify/models"
	"github.com/akinalp/smartnotify/pkg"
	"github.com/akinalp/smartnotify/repository"
)

// NotificationService, bildirim okuma/işaretleme işlemleri için interface.
// Bildirim ÜRETİMİ burada değil DispatchService'tedir — bu service yalnızca
// kullanıcının kendi bildirim listesiyle ilgilenir.
type NotificationService interface {
	GetByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	GetUnread(ctx context.Context, userID string) ([]models.Notification, error)
	// MarkRead, verilen id'leri okundu işaretler — ya hepsi ya hiçbiri.
	// Kullanıcıya ait olmayan veya var olmayan TEK bir id bile tüm isteği
	// düşürür; hata mesajı geçersiz id'leri listeler.
	MarkRead(ctx context.Context, userID string, req *models.MarkReadRequest) error
}

// notificationService, NotificationService implementasyonu.
type notificationService struct {
	notifRepo repository.NotificationRepository
}

// NewNotificationService, constructor.
func NewNotificationService(notifRepo repository.NotificationRepository) NotificationService {
	return &notificationService{notifRepo: notifRepo}
}

func (s *notificationService) GetByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	return s.notifRepo.GetByUser(ctx, userID, limit)
}

func (s *notificationService) GetUnread(ctx context.Context, userID string) ([]models.Notification, error) {
	return s.notifRepo.GetUnread(ctx, userID)
}

func (s *notificationService) MarkRead(ctx context.Context, userID string, req *models.MarkReadRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	// Sahiplik kontrolü tek batch sorguyla: set'te olmayan her id geçersiz.
	// Başkasının bildirimi ile var olmayan bildirim aynı cevabı alır —
	// id'lerin varlığı sızdırılmaz.
	owned, err := s.notifRepo.GetOwnedIDs(ctx, userID, req.IDs)
	if err != nil {
		return err
	}

	var invalid []string
	for _, id := range req.IDs {
		if !owned[id] {
			invalid = append(invalid, id)
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("%w: invalid notification ids: %s", pkg.ErrBadRequest, strings.Join(invalid, ", "))
	}

	return s.notifRepo.MarkRead(ctx, userID, req.IDs)
}
