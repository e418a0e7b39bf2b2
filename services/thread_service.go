package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/akinalp/smartnotify/database"
	"github.com/akinalp/smartnotify/models"
	"github.com/akinalp/smartnotify/pkg"
	"github.com/akinalp/smartnotify/repository"
)

// ThreadService, tartışma başlığı işlemleri için interface.
type ThreadService interface {
	// Create, thread'i oluşturur ve oluşturanı OTOMATİK abone yapar —
	// kendi başlığının yorumlarından haberdar olmak varsayılan davranıştır.
	Create(ctx context.Context, creatorID string, req *models.CreateThreadRequest) (*models.Thread, error)
	GetAll(ctx context.Context) ([]models.Thread, error)
	// GetDetail, thread'i yorumlarıyla birlikte döner.
	GetDetail(ctx context.Context, threadID string) (*models.ThreadDetail, error)
	Subscribe(ctx context.Context, threadID, userID string) error
	Unsubscribe(ctx context.Context, threadID, userID string) error
}

// threadService, ThreadService implementasyonu.
type threadService struct {
	db          *sql.DB
	threadRepo  repository.ThreadRepository
	subRepo     repository.SubscriptionRepository
	commentRepo repository.CommentRepository
}

// NewThreadService, constructor.
func NewThreadService(
	db *sql.DB,
	threadRepo repository.ThreadRepository,
	subRepo repository.SubscriptionRepository,
	commentRepo repository.CommentRepository,
) ThreadService {
	return &threadService{
		db:          db,
		threadRepo:  threadRepo,
		subRepo:     subRepo,
		commentRepo: commentRepo,
	}
}

func (s *threadService) Create(ctx context.Context, creatorID string, req *models.CreateThreadRequest) (*models.Thread, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	thread := &models.Thread{
		CreatorID: creatorID,
		Title:     req.Title,
	}

	// Thread + creator aboneliği tek transaction: abone olmayan creator
	// diye bir ara durum yoktur.
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		txThreadRepo := repository.NewSQLiteThreadRepo(tx)
		txSubRepo := repository.NewSQLiteSubscriptionRepo(tx)

		if err := txThreadRepo.Create(ctx, thread); err != nil {
			return err
		}
		return txSubRepo.Subscribe(ctx, thread.ID, creatorID)
	})
	if err != nil {
		return nil, err
	}

	return thread, nil
}

func (s *threadService) GetAll(ctx context.Context) ([]models.Thread, error) {
	return s.threadRepo.GetAll(ctx)
}

func (s *threadService) GetDetail(ctx context.Context, threadID string) (*models.ThreadDetail, error) {
	thread, err := s.threadRepo.GetByID(ctx, threadID)
	if err != nil {
		return nil, err
	}

	comments, err := s.commentRepo.GetByThread(ctx, threadID)
	if err != nil {
		return nil, err
	}

	return &models.ThreadDetail{
		Thread:   *thread,
		Comments: comments,
	}, nil
}

func (s *threadService) Subscribe(ctx context.Context, threadID, userID string) error {
	// Thread var mı? Olmayan thread'e abonelik 404 dönmeli.
	if _, err := s.threadRepo.GetByID(ctx, threadID); err != nil {
		return err
	}

	// Subscribe idempotent — tekrar abone olmak hata değildir
	return s.subRepo.Subscribe(ctx, threadID, userID)
}

func (s *threadService) Unsubscribe(ctx context.Context, threadID, userID string) error {
	if _, err := s.threadRepo.GetByID(ctx, threadID); err != nil {
		return err
	}

	return s.subRepo.Unsubscribe(ctx, threadID, userID)
}
