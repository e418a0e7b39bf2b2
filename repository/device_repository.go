package repository

import (
	"context"

	"github.com/akinalp/smartnotify/models"
)

// DeviceRepository, bilinen cihaz kayıtları için interface.
type DeviceRepository interface {
	// GetOrCreate, (user_id, fingerprint) için atomik get-or-create yapar.
	// created=true → cihaz İLK kez görüldü (güvenlik uyarısı adayı).
	// created=false → bilinen cihaz, last_seen_at güncellenir.
	//
	// Atomiklik INSERT OR IGNORE + RowsAffected ile sağlanır: iki eşzamanlı
	// login aynı cihazı eklese bile yalnızca biri created=true görür —
	// duplicate uyarı üretilmez.
	GetOrCreate(ctx context.Context, device *models.KnownDevice) (created bool, err error)
	GetByUser(ctx context.Context, userID string) ([]models.KnownDevice, error)
}
