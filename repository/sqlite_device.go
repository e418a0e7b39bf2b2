package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akinalp/smartnotify/database"
	"github.com/akinalp/smartnotify/models"
	"github.com/akinalp/smartnotify/pkg"
)

// sqliteDeviceRepo, DeviceRepository interface'inin SQLite implementasyonu.
type sqliteDeviceRepo struct {
	db database.TxQuerier
}

// NewSQLiteDeviceRepo, constructor.
func NewSQLiteDeviceRepo(db database.TxQuerier) DeviceRepository {
	return &sqliteDeviceRepo{db: db}
}

func (r *sqliteDeviceRepo) GetOrCreate(ctx context.Context, device *models.KnownDevice) (bool, error) {
	// INSERT OR IGNORE: (user_id, fingerprint) unique — zaten varsa 0 satır etkilenir.
	result, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO known_devices (id, user_id, fingerprint, ip, user_agent)
		VALUES (lower(hex(randomblob(8))), ?, ?, ?, ?)`,
		device.UserID, device.Fingerprint, device.IP, device.UserAgent,
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert device: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	created := rows == 1

	if !created {
		// Bilinen cihaz — son görülme zamanını güncelle
		if _, err := r.db.ExecContext(ctx, `
			UPDATE known_devices SET last_seen_at = CURRENT_TIMESTAMP
			WHERE user_id = ? AND fingerprint = ?`,
			device.UserID, device.Fingerprint,
		); err != nil {
			return false, fmt.Errorf("failed to touch device: %w", err)
		}
	}

	// Satırı geri oku — ID ve timestamp'ler caller'a dönsün
	err = r.db.QueryRowContext(ctx, `
		SELECT id, created_at, last_seen_at FROM known_devices
		WHERE user_id = ? AND fingerprint = ?`,
		device.UserID, device.Fingerprint,
	).Scan(&device.ID, &device.CreatedAt, &device.LastSeenAt)

	if errors.Is(err, sql.ErrNoRows) {
		return false, pkg.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to read device: %w", err)
	}

	return created, nil
}

func (r *sqliteDeviceRepo) GetByUser(ctx context.Context, userID string) ([]models.KnownDevice, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, fingerprint, ip, user_agent, created_at, last_seen_at
		FROM known_devices WHERE user_id = ? ORDER BY last_seen_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get devices: %w", err)
	}
	defer rows.Close()

	var devices []models.KnownDevice
	for rows.Next() {
		var d models.KnownDevice
		if err := rows.Scan(
			&d.ID, &d.UserID, &d.Fingerprint, &d.IP, &d.UserAgent,
			&d.CreatedAt, &d.LastSeenAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating devices: %w", err)
	}

	return devices, nil
}
