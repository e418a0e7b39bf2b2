package repository

import (
	"context"

	"github.com/akinalp/smartnotify/models"
)

// PreferenceRepository, kullanıcı kanal tercihleri için interface.
type PreferenceRepository interface {
	// Create, kullanıcının tercih satırını oluşturur.
	// Register transaction'ı içinde çağrılır — her yeni kullanıcı default
	// tercihlerle başlar.
	Create(ctx context.Context, pref *models.NotificationPreference) error
	// GetByUser, pkg.ErrNotFound dönebilir — bu bir hata değil sinyaldir:
	// tercih satırı olmayan kullanıcıya bildirim üretilmez.
	GetByUser(ctx context.Context, userID string) (*models.NotificationPreference, error)
	// GetByUsers, fan-out için batch lookup: userID → preference map'i.
	// Map'te olmayan kullanıcıların tercih satırı yoktur.
	GetByUsers(ctx context.Context, userIDs []string) (map[string]models.NotificationPreference, error)
	Update(ctx context.Context, pref *models.NotificationPreference) error
}
