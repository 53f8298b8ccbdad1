package domain

import (
	"context"

	"github.com/lvyanru/chatctl/internal/domain/entity"
)

// ============ Repository interface ============

// UserRepository user data access
type UserRepository interface {
	// Create stores a new user; duplicate email or username yields ErrAlreadyExists
	Create(ctx context.Context, user *entity.User) (*entity.User, error)

	GetByID(ctx context.Context, userID string) (*entity.User, error)

	// GetByEmail is used for login
	GetByEmail(ctx context.Context, email string) (*entity.User, error)

	GetByUsername(ctx context.Context, username string) (*entity.User, error)

	// UpdateUsername renames the user
	UpdateUsername(ctx context.Context, userID, username string) (*entity.User, error)

	// AddCredits applies delta atomically and returns the new balance.
	// A delta that would take the balance below zero fails with ErrPaymentRequired.
	AddCredits(ctx context.Context, userID string, delta int) (int, error)
}

// ============ Usecase interface ============

// UserUsecase account operations
type UserUsecase interface {
	// Register creates an account with the signup credits and a welcome notification
	Register(ctx context.Context, username, email, password string) (*entity.User, error)

	// Login checks the password of the account registered under email
	Login(ctx context.Context, email, password string) (*entity.User, error)

	// GetUser returns userID's record; requesterID must match
	GetUser(ctx context.Context, requesterID, userID string) (*entity.User, error)

	// UpdateProfile changes the username
	UpdateProfile(ctx context.Context, userID, username string) (*entity.User, error)

	// EnsureUser creates the account with the given balance unless the email is taken
	EnsureUser(ctx context.Context, username, email, password string, credits int) (*entity.User, error)
}
