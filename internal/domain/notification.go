package domain

import (
	"context"

	"github.com/lvyanru/chatctl/internal/domain/entity"
)

// NotificationRepository notification data access
type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error

	// ListByUser returns up to limit notifications, newest first
	ListByUser(ctx context.Context, userID string, limit int) ([]*entity.Notification, error)

	// MarkAllRead returns how many notifications changed
	MarkAllRead(ctx context.Context, userID string) (int, error)
}

// NotificationUsecase notification operations
type NotificationUsecase interface {
	List(ctx context.Context, userID string) ([]*entity.Notification, error)
	Create(ctx context.Context, userID, message string) (*entity.Notification, error)
	MarkAllRead(ctx context.Context, userID string) error
}
