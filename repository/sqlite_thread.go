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

// sqliteThreadRepo, ThreadRepository interface'inin SQLite implementasyonu.
type sqliteThreadRepo struct {
	db database.TxQuerier
}

// NewSQLiteThreadRepo, constructor.
func NewSQLiteThreadRepo(db database.TxQuerier) ThreadRepository {
	return &sqliteThreadRepo{db: db}
}

func (r *sqliteThreadRepo) Create(ctx context.Context, thread *models.Thread) error {
	query := `
		INSERT INTO threads (id, title, creator_id)
		VALUES (lower(hex(randomblob(8))), ?, ?)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		thread.Title,
		thread.CreatorID,
	).Scan(&thread.ID, &thread.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create thread: %w", err)
	}

	return nil
}

func (r *sqliteThreadRepo) GetByID(ctx context.Context, id string) (*models.Thread, error) {
	query := `
		SELECT id, title, creator_id, created_at
		FROM threads WHERE id = ?`

	thread := &models.Thread{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&thread.ID, &thread.Title, &thread.CreatorID, &thread.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get thread by id: %w", err)
	}

	return thread, nil
}

func (r *sqliteThreadRepo) GetAll(ctx context.Context) ([]models.Thread, error) {
	query := `
		SELECT id, title, creator_id, created_at
		FROM threads ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get threads: %w", err)
	}
	defer rows.Close() // rows'u kapatmayı ASLA unutma — aksi halde bağlantı sızar

	var threads []models.Thread
	for rows.Next() {
		var t models.Thread
		if err := rows.Scan(&t.ID, &t.Title, &t.CreatorID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate threads: %w", err)
	}

	return threads, nil
}

// sqliteSubscriptionRepo, SubscriptionRepository interface'inin SQLite implementasyonu.
type sqliteSubscriptionRepo struct {
	db database.TxQuerier
}

// NewSQLiteSubscriptionRepo, constructor.
func NewSQLiteSubscriptionRepo(db database.TxQuerier) SubscriptionRepository {
	return &sqliteSubscriptionRepo{db: db}
}

func (r *sqliteSubscriptionRepo) Subscribe(ctx context.Context, threadID, userID string) error {
	// INSERT OR IGNORE: (thread_id, user_id) zaten varsa sessizce atla — idempotent.
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO thread_subscriptions (thread_id, user_id)
		VALUES (?, ?)`, threadID, userID)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	return nil
}

func (r *sqliteSubscriptionRepo) Unsubscribe(ctx context.Context, threadID, userID string) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM thread_subscriptions WHERE thread_id = ? AND user_id = ?`,
		threadID, userID)
	if err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
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

func (r *sqliteSubscriptionRepo) IsSubscribed(ctx context.Context, threadID, userID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM thread_subscriptions
		WHERE thread_id = ? AND user_id = ?`, threadID, userID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check subscription: %w", err)
	}
	return count > 0, nil
}

func (r *sqliteSubscriptionRepo) GetSubscriberIDs(ctx context.Context, threadID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id FROM thread_subscriptions
		WHERE thread_id = ? ORDER BY created_at`, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscribers: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan subscriber: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscribers: %w", err)
	}

	return ids, nil
}
