package types

import "time"

// Notification represents a server-side user notification
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateNotificationRequest represents the create-notification payload
type CreateNotificationRequest struct {
	Message string `json:"message"`
}
