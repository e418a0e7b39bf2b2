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

// sqliteCommentRepo, CommentRepository interface'inin SQLite implementasyonu.
type sqliteCommentRepo struct {
	db database.TxQuerier
}

// NewSQLiteCommentRepo, constructor.
func NewSQLiteCommentRepo(db database.TxQuerier) CommentRepository {
	return &sqliteCommentRepo{db: db}
}

func (r *sqliteCommentRepo) Create(ctx context.Context, comment *models.Comment) error {
	query := `
		INSERT INTO comments (id, thread_id, author_id, body)
		VALUES (lower(hex(randomblob(8))), ?, ?, ?)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		comment.ThreadID,
		comment.AuthorID,
		comment.Body,
	).Scan(&comment.ID, &comment.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}

	return nil
}

func (r *sqliteCommentRepo) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	query := `
		SELECT id, thread_id, author_id, body, created_at
		FROM comments WHERE id = ?`

	comment := &models.Comment{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&comment.ID, &comment.ThreadID, &comment.AuthorID,
		&comment.Body, &comment.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment by id: %w", err)
	}

	return comment, nil
}

func (r *sqliteCommentRepo) GetByThread(ctx context.Context, threadID string) ([]models.Comment, error) {
	query := `
		SELECT id, thread_id, author_id, body, created_at
		FROM comments WHERE thread_id = ? ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.ThreadID, &c.AuthorID, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comments: %w", err)
	}

	return comments, nil
}
