package entity

import "time"

// User account held by the dev server
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Credits      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
