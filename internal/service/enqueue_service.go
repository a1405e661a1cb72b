package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bobibobi02/whistle-connect-sub001/internal/domain"
	"github.com/bobibobi02/whistle-connect-sub001/internal/repository"
)

// EnqueueService is the producer-facing write surface: the rest of the
// platform hands over an already-decided notification and gets back the
// pending row. Which events *deserve* a notification (mentions, follows,
// preference and snooze checks) is decided upstream and never re-examined
// here.
type EnqueueService struct {
	queue  repository.QueueRepository
	logger *zap.Logger
}

func NewEnqueueService(queue repository.QueueRepository, logger *zap.Logger) *EnqueueService {
	return &EnqueueService{queue: queue, logger: logger}
}

// Enqueue validates and persists one pending notification row.
func (s *EnqueueService) Enqueue(ctx context.Context, req domain.EnqueueRequest) (*domain.QueuedNotification, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	n := &domain.QueuedNotification{
		ID:          uuid.New().String(),
		RecipientID: req.RecipientID,
		Title:       req.Title,
		Body:        req.Body,
		Data:        req.Data,
		Status:      domain.StatusPending,
		EnqueuedAt:  time.Now().UTC(),
	}

	if err := s.queue.Insert(ctx, n); err != nil {
		return nil, fmt.Errorf("persist notification: %w", err)
	}

	s.logger.Debug("notification enqueued",
		zap.String("id", n.ID),
		zap.String("recipient_id", n.RecipientID),
	)
	return n, nil
}

// GetByID returns one queue row, primarily for producers polling delivery
// status of something they enqueued.
func (s *EnqueueService) GetByID(ctx context.Context, id string) (*domain.QueuedNotification, error) {
	return s.queue.GetByID(ctx, id)
}
