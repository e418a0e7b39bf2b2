package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/akinalp/smartnotify/database"
	"github.com/akinalp/smartnotify/models"
	"github.com/akinalp/smartnotify/pkg"
)

// sqlitePreferenceRepo, PreferenceRepository interface'inin SQLite implementasyonu.
type sqlitePreferenceRepo struct {
	db database.TxQuerier
}

// NewSQLitePreferenceRepo, constructor.
func NewSQLitePreferenceRepo(db database.TxQuerier) PreferenceRepository {
	return &sqlitePreferenceRepo{db: db}
}

func (r *sqlitePreferenceRepo) Create(ctx context.Context, pref *models.NotificationPreference) error {
	query := `
		INSERT INTO notification_preferences (user_id, in_app_enabled, email_enabled, sms_enabled)
		VALUES (?, ?, ?, ?)
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		pref.UserID,
		pref.InAppEnabled,
		pref.EmailEnabled,
		pref.SMSEnabled,
	).Scan(&pref.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: preference already exists", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create preference: %w", err)
	}

	return nil
}

func (r *sqlitePreferenceRepo) GetByUser(ctx context.Context, userID string) (*models.NotificationPreference, error) {
	query := `
		SELECT user_id, in_app_enabled, email_enabled, sms_enabled, updated_at
		FROM notification_preferences WHERE user_id = ?`

	pref := &models.NotificationPreference{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&pref.UserID, &pref.InAppEnabled, &pref.EmailEnabled,
		&pref.SMSEnabled, &pref.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preference: %w", err)
	}

	return pref, nil
}

// GetByUsers, fan-out audience'ının tercihlerini tek sorguda çeker.
// N+1 önleme: alıcı başına ayrı sorgu yerine batch IN sorgusu.
func (r *sqlitePreferenceRepo) GetByUsers(ctx context.Context, userIDs []string) (map[string]models.NotificationPreference, error) {
	if len(userIDs) == 0 {
		return make(map[string]models.NotificationPreference), nil
	}

	placeholders := make([]string, len(userIDs))
	args := make([]any, len(userIDs))
	for i, id := range userIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT user_id, in_app_enabled, email_enabled, sms_enabled, updated_at
		FROM notification_preferences WHERE user_id IN (%s)`,
		strings.Join(placeholders, ", "),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to batch get preferences: %w", err)
	}
	defer rows.Close()

	result := make(map[string]models.NotificationPreference)
	for rows.Next() {
		var pref models.NotificationPreference
		if err := rows.Scan(
			&pref.UserID, &pref.InAppEnabled, &pref.EmailEnabled,
			&pref.SMSEnabled, &pref.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan preference: %w", err)
		}
		result[pref.UserID] = pref
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating preferences: %w", err)
	}

	return result, nil
}

func (r *sqlitePreferenceRepo) Update(ctx context.Context, pref *models.NotificationPreference) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE notification_preferences
		SET in_app_enabled = ?, email_enabled = ?, sms_enabled = ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ?`,
		pref.InAppEnabled, pref.EmailEnabled, pref.SMSEnabled, pref.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update preference: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rows == 0 {
		return pkg.ErrNotFound
	}

	return nil
}
