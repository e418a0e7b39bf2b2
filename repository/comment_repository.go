package repository

import (
	"context"

	"github.com/akinalp/smartnotify/models"
)

// CommentRepository, thread yorumları için interface.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	GetByThread(ctx context.Context, threadID string) ([]models.Comment, error)
}
