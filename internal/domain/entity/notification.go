package entity

import "time"

// Notification message shown under the user's badge
type Notification struct {
	ID        string
	UserID    string
	Message   string
	Read      bool
	CreatedAt time.Time
}
