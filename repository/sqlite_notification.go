package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akinalp/smartnotify/database"
	"github.com/akinalp/smartnotify/models"
	"github.com/akinalp/smartnotify/pkg"
)

// sqliteNotificationRepo, NotificationRepository interface'inin SQLite implementasyonu.
//
// TxQuerier alır — fan-out sırasında dispatch service bu repo'yu
// transaction'daki *sql.Tx üzerinden yeniden kurar, böylece alıcı başına
// INSERT'ler tek transaction'da toplanır.
type sqliteNotificationRepo struct {
	db database.TxQuerier
}

// NewSQLiteNotificationRepo, constructor.
func NewSQLiteNotificationRepo(db database.TxQuerier) NotificationRepository {
	return &sqliteNotificationRepo{db: db}
}

const notificationColumns = `id, user_id, actor_id, thread_id, comment_id, kind, message,
	in_app_status, email_status, sms_status, email_task_id, sms_task_id, is_read, created_at`

func (r *sqliteNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications
			(id, user_id, actor_id, thread_id, comment_id, kind, message,
			 in_app_status, email_status, sms_status)
		VALUES (lower(hex(randomblob(8))), ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		n.UserID,
		n.ActorID,
		n.ThreadID,
		n.CommentID,
		n.Kind,
		n.Message,
		n.InAppStatus,
		n.EmailStatus,
		n.SMSStatus,
	).Scan(&n.ID, &n.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

func (r *sqliteNotificationRepo) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = ?`

	n := &models.Notification{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&n.ID, &n.UserID, &n.ActorID, &n.ThreadID, &n.CommentID, &n.Kind, &n.Message,
		&n.InAppStatus, &n.EmailStatus, &n.SMSStatus, &n.EmailTaskID, &n.SMSTaskID,
		&n.IsRead, &n.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification by id: %w", err)
	}

	return n, nil
}

func (r *sqliteNotificationRepo) GetByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + notificationColumns + `
		FROM notifications WHERE user_id = ?
		ORDER BY created_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}
	defer rows.Close()

	return scanNotifications(rows)
}

func (r *sqliteNotificationRepo) GetUnread(ctx context.Context, userID string) ([]models.Notification, error) {
	query := `SELECT ` + notificationColumns + `
		FROM notifications WHERE user_id = ? AND is_read = 0
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get unread notifications: %w", err)
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// GetOwnedIDs, batch IN sorgusu ile verilen id'lerin sahiplik set'ini döner.
// N+1 önleme: her id için ayrı sorgu yerine tek sorgu.
func (r *sqliteNotificationRepo) GetOwnedIDs(ctx context.Context, userID string, ids []string) (map[string]bool, error) {
	if len(ids) == 0 {
		return make(map[string]bool), nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}

	query := fmt.Sprintf(
		"SELECT id FROM notifications WHERE user_id = ? AND id IN (%s)",
		strings.Join(placeholders, ", "),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to check notification ownership: %w", err)
	}
	defer rows.Close()

	owned := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan notification id: %w", err)
		}
		owned[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification ids: %w", err)
	}

	return owned, nil
}

func (r *sqliteNotificationRepo) MarkRead(ctx context.Context, userID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}

	query := fmt.Sprintf(
		"UPDATE notifications SET is_read = 1 WHERE user_id = ? AND id IN (%s)",
		strings.Join(placeholders, ", "),
	)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

func (r *sqliteNotificationRepo) SetChannelTaskID(ctx context.Context, id string, channel models.Channel, taskID string) error {
	column, err := taskIDColumn(channel)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("UPDATE notifications SET %s = ? WHERE id = ?", column)
	if _, err := r.db.ExecContext(ctx, query, taskID, id); err != nil {
		return fmt.Errorf("failed to set %s task id: %w", channel, err)
	}
	return nil
}

func (r *sqliteNotificationRepo) MarkChannelFailed(ctx context.Context, id string, channel models.Channel) error {
	var query string
	switch channel {
	case models.ChannelEmail:
		query = "UPDATE notifications SET email_status = 0, email_task_id = NULL WHERE id = ?"
	case models.ChannelSMS:
		query = "UPDATE notifications SET sms_status = 0, sms_task_id = NULL WHERE id = ?"
	default:
		return fmt.Errorf("%w: channel %q has no delivery task", pkg.ErrBadRequest, channel)
	}

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark %s channel failed: %w", channel, err)
	}
	return nil
}

func (r *sqliteNotificationRepo) UpdateMessage(ctx context.Context, id, message string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET message = ? WHERE id = ?", message, id)
	if err != nil {
		return fmt.Errorf("failed to update notification message: %w", err)
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

// GetUnreadDigests, özet taraması: since'ten bu yana üretilmiş okunmamış
// bildirimi olan kullanıcılar, tercih satırlarıyla JOIN'li tek sorguda.
// Tercih satırı olmayan kullanıcı JOIN'de düşer — dispatch ile aynı politika.
// Önceki taramaların özet satırları sayım dışıdır, özet kendini beslemez.
//
// created_at DATETIME kolonu CURRENT_TIMESTAMP formatında string tutar;
// karşılaştırma için parametre de aynı formatta verilir.
func (r *sqliteNotificationRepo) GetUnreadDigests(ctx context.Context, since time.Time) ([]models.UnreadDigest, error) {
	query := `
		SELECT n.user_id, p.in_app_enabled, p.email_enabled, COUNT(*)
		FROM notifications n
		JOIN notification_preferences p ON p.user_id = n.user_id
		WHERE n.is_read = 0 AND n.kind != ? AND n.created_at >= ?
		GROUP BY n.user_id, p.in_app_enabled, p.email_enabled`

	rows, err := r.db.QueryContext(ctx, query,
		models.KindSummary, since.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return nil, fmt.Errorf("failed to get unread digests: %w", err)
	}
	defer rows.Close()

	var digests []models.UnreadDigest
	for rows.Next() {
		var d models.UnreadDigest
		if err := rows.Scan(&d.UserID, &d.InAppEnabled, &d.EmailEnabled, &d.UnreadCount); err != nil {
			return nil, fmt.Errorf("failed to scan unread digest: %w", err)
		}
		digests = append(digests, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unread digests: %w", err)
	}

	return digests, nil
}

// taskIDColumn, kanal → task id kolonu eşlemesi.
// in_app kanalının task'ı yoktur — WS push senkron yapılır.
func taskIDColumn(channel models.Channel) (string, error) {
	switch channel {
	case models.ChannelEmail:
		return "email_task_id", nil
	case models.ChannelSMS:
		return "sms_task_id", nil
	default:
		return "", fmt.Errorf("%w: channel %q has no delivery task", pkg.ErrBadRequest, channel)
	}
}

func scanNotifications(rows *sql.Rows) ([]models.Notification, error) {
	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(
			&n.ID, &n.UserID, &n.ActorID, &n.ThreadID, &n.CommentID, &n.Kind, &n.Message,
			&n.InAppStatus, &n.EmailStatus, &n.SMSStatus, &n.EmailTaskID, &n.SMSTaskID,
			&n.IsRead, &n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	if notifications == nil {
		notifications = []models.Notification{}
	}
	return notifications, nil
}
