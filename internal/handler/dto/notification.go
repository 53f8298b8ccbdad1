package dto

import (
	"time"

	"github.com/lvyanru/chatctl/internal/domain/entity"
)

// NotificationResponse one notification
type NotificationResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateNotificationRequest create payload
type CreateNotificationRequest struct {
	Message string `json:"message"`
}

// SuccessResponse acknowledges an action without a payload
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ToNotificationResponse converts entity.Notification
func ToNotificationResponse(n *entity.Notification) *NotificationResponse {
	return &NotificationResponse{
		ID:        n.ID,
		UserID:    n.UserID,
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

// ToNotificationListResponse converts a list
func ToNotificationListResponse(list []*entity.Notification) []*NotificationResponse {
	out := make([]*NotificationResponse, len(list))
	for i, n := range list {
		out[i] = ToNotificationResponse(n)
	}
	return out
}
