package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lvyanru/chatctl/internal/domain"
	"github.com/lvyanru/chatctl/internal/domain/entity"
)

// NotificationLimit is how many notifications List returns
const NotificationLimit = 20

type notificationUsecase struct {
	repo   domain.NotificationRepository
	logger *zap.Logger
}

// NewNotificationUsecase creates a NotificationUsecase
func NewNotificationUsecase(repo domain.NotificationRepository, logger *zap.Logger) domain.NotificationUsecase {
	return &notificationUsecase{
		repo:   repo,
		logger: logger,
	}
}

func (u *notificationUsecase) List(ctx context.Context, userID string) ([]*entity.Notification, error) {
	list, err := u.repo.ListByUser(ctx, userID, NotificationLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return list, nil
}

func (u *notificationUsecase) Create(ctx context.Context, userID, message string) (*entity.Notification, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, domain.NewValidationError("message is required")
	}

	n := &entity.Notification{UserID: userID, Message: message}
	if err := u.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	return n, nil
}

func (u *notificationUsecase) MarkAllRead(ctx context.Context, userID string) error {
	changed, err := u.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	u.logger.Debug("notifications marked read", zap.String("user_id", userID), zap.Int("count", changed))
	return nil
}
