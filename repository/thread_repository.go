package repository

import (
	"context"

	"github.com/akinalp/smartnotify/models"
)

// ThreadRepository, tartışma başlıkları için interface.
type ThreadRepository interface {
	Create(ctx context.Context, thread *models.Thread) error
	GetByID(ctx context.Context, id string) (*models.Thread, error)
	// GetAll, tüm thread'leri yeniden eskiye sıralı döner.
	GetAll(ctx context.Context) ([]models.Thread, error)
}

// SubscriptionRepository, thread abonelikleri için interface.
type SubscriptionRepository interface {
	// Subscribe idempotent'tir — mevcut abonelik hata üretmez.
	Subscribe(ctx context.Context, threadID, userID string) error
	Unsubscribe(ctx context.Context, threadID, userID string) error
	IsSubscribed(ctx context.Context, threadID, userID string) (bool, error)
	// GetSubscriberIDs, fan-out audience'ının ham halidir:
	// thread'e abone TÜM kullanıcı id'leri (yorum yazarı dahil).
	// Yazarın elenmesi dispatch service'in işidir.
	GetSubscriberIDs(ctx context.Context, threadID string) ([]string, error)
}
