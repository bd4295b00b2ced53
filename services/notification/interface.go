package notification

import (
	"context"
	"fmt"
	"time"

	notificationRepo "consultbook/database/repository/notification"
	"consultbook/models"
	"consultbook/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationService appends outbound messages to the delivery queue.
type NotificationService interface {
	// Enqueue is fire-and-forget: failures are logged, never returned, and the
	// write outlives cancellation of the caller's request.
	Enqueue(ctx context.Context, to, kind string, data map[string]any)
}

// DefaultNotificationService is the production implementation.
type DefaultNotificationService struct {
	Queue  notificationRepo.QueueRepository
	Clock  utils.Clock
	Logger *zap.Logger
}

func NewDefaultNotificationService(queue notificationRepo.QueueRepository, logger *zap.Logger) (*DefaultNotificationService, error) {
	if queue == nil {
		return nil, fmt.Errorf("notification service initialization error: queue repository is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultNotificationService{Queue: queue, Clock: utils.SystemClock{}, Logger: logger}, nil
}

func (s *DefaultNotificationService) Enqueue(ctx context.Context, to, kind string, data map[string]any) {
	if to == "" {
		s.Logger.Warn("Skipping notification without recipient", zap.String("type", kind))
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	entry := &models.NotificationEntry{
		ID:        uuid.New().String(),
		To:        to,
		Type:      kind,
		Data:      data,
		Status:    models.NotificationPending,
		CreatedAt: s.Clock.Now().UTC(),
	}
	if err := s.Queue.Enqueue(ctx, entry); err != nil {
		s.Logger.Warn("Failed to queue notification",
			zap.String("type", kind),
			zap.String("to", to),
			zap.Error(err))
		return
	}
	s.Logger.Debug("Notification queued", zap.String("type", kind), zap.String("id", entry.ID))
}
