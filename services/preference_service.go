package services

import (
	"context"
	"fmt"

	"github.com/akinalp/smartnotify/models"
	"github.com/akinalp/smartnotify/pkg"
	"github.com/akinalp/smartnotify/repository"
)

// PreferenceService, bildirim kanal tercihleri için interface.
// Herkes yalnızca KENDİ tercihlerini görür ve değiştirir — userID her zaman
// authenticated kullanıcıdan gelir, request body'den değil.
type PreferenceService interface {
	Get(ctx context.Context, userID string) (*models.NotificationPreference, error)
	// Update, kısmi güncelleme yapar: yalnızca gönderilen alanlar değişir.
	Update(ctx context.Context, userID string, req *models.UpdatePreferenceRequest) (*models.NotificationPreference, error)
}

// preferenceService, PreferenceService implementasyonu.
type preferenceService struct {
	prefRepo repository.PreferenceRepository
}

// NewPreferenceService, constructor.
func NewPreferenceService(prefRepo repository.PreferenceRepository) PreferenceService {
	return &preferenceService{prefRepo: prefRepo}
}

func (s *preferenceService) Get(ctx context.Context, userID string) (*models.NotificationPreference, error) {
	return s.prefRepo.GetByUser(ctx, userID)
}

func (s *preferenceService) Update(ctx context.Context, userID string, req *models.UpdatePreferenceRequest) (*models.NotificationPreference, error) {
	if req.Empty() {
		return nil, fmt.Errorf("%w: no preference fields provided", pkg.ErrBadRequest)
	}

	pref, err := s.prefRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.InAppEnabled != nil {
		pref.InAppEnabled = *req.InAppEnabled
	}
	if req.EmailEnabled != nil {
		pref.EmailEnabled = *req.EmailEnabled
	}
	if req.SMSEnabled != nil {
		pref.SMSEnabled = *req.SMSEnabled
	}

	if err := s.prefRepo.Update(ctx, pref); err != nil {
		return nil, err
	}

	return pref, nil
}
