package services

import (
	"context"
	"fmt"
	"log"

	"github.com/akinalp/smartnotify/models"
	"github.com/akinalp/smartnotify/pkg"
	"github.com/akinalp/smartnotify/repository"
)

// CommentService, thread yorumları için interface.
type CommentService interface {
	// Create, yorumu kaydeder ve abonelere bildirim fan-out'unu BAŞLATIR.
	// Fan-out çağrısı açıktır — bu metodu okuyan, bildirimlerin nereden
	// geldiğini görür.
	Create(ctx context.Context, authorID, threadID string, req *models.CreateCommentRequest) (*models.Comment, error)
}

// commentService, CommentService implementasyonu.
type commentService struct {
	commentRepo repository.CommentRepository
	threadRepo  repository.ThreadRepository
	dispatcher  DispatchService
}

// NewCommentService, constructor.
func NewCommentService(
	commentRepo repository.CommentRepository,
	threadRepo repository.ThreadRepository,
	dispatcher DispatchService,
) CommentService {
	return &commentService{
		commentRepo: commentRepo,
		threadRepo:  threadRepo,
		dispatcher:  dispatcher,
	}
}

func (s *commentService) Create(ctx context.Context, authorID, threadID string, req *models.CreateCommentRequest) (*models.Comment, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	// Thread var mı? Olmayan thread'e yorum 404.
	if _, err := s.threadRepo.GetByID(ctx, threadID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ThreadID: threadID,
		AuthorID: authorID,
		Body:     req.Body,
	}

	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	// Yorum commit edildi — fan-out hatası yorumu GERİ ALMAZ.
	// Client'a 500 dönmek yazılmış yorumu gizler; loglanır ve devam edilir.
	if err := s.dispatcher.DispatchCommentNotifications(ctx, comment); err != nil {
		log.Printf("[comment] notification dispatch failed for comment %s: %v", comment.ID, err)
	}

	return comment, nil
}
