package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lvyanru/chatctl/internal/domain"
	"github.com/lvyanru/chatctl/internal/domain/entity"
)

// userRepository is the sqlite implementation of domain.UserRepository
type userRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewUserRepository creates a UserRepository
func NewUserRepository(db *sql.DB) domain.UserRepository {
	return &userRepository{
		db:  db,
		now: time.Now,
	}
}

// Create inserts the user, assigning an id and timestamps when missing
func (r *userRepository) Create(ctx context.Context, user *entity.User) (*entity.User, error) {
	created := *user
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	now := r.now().UTC().Truncate(time.Millisecond)
	created.CreatedAt = now
	created.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		created.ID, created.Username, created.Email, created.PasswordHash, created.Credits,
		toMillis(created.CreatedAt), toMillis(created.UpdatedAt),
	)
	if err != nil {
		if isConstraintError(err) {
			return nil, duplicateUserError(err, created.Username)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &created, nil
}

// GetByID finds a user by id
func (r *userRepository) GetByID(ctx context.Context, userID string) (*entity.User, error) {
	return r.getBy(ctx, "id", userID)
}

// GetByEmail finds a user by email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getBy(ctx, "email", email)
}

// GetByUsername finds a user by username
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.getBy(ctx, "username", username)
}

func (r *userRepository) getBy(ctx context.Context, column, value string) (*entity.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("User", value)
		}
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}
	return u, nil
}

// UpdateUsername renames the user
func (r *userRepository) UpdateUsername(ctx context.Context, userID, username string) (*entity.User, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET username = ?, updated_at = ? WHERE id = ?`,
		username, toMillis(r.now()), userID,
	)
	if err != nil {
		if isConstraintError(err) {
			return nil, duplicateUserError(err, username)
		}
		return nil, fmt.Errorf("failed to update username: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.NewNotFoundError("User", userID)
	}
	return r.GetByID(ctx, userID)
}

// AddCredits applies delta in a single statement so concurrent chats cannot
// overdraw the balance
func (r *userRepository) AddCredits(ctx context.Context, userID string, delta int) (int, error) {
	var balance int
	err := r.db.QueryRowContext(ctx,
		`UPDATE users SET credits = credits + ?, updated_at = ?
		 WHERE id = ? AND credits + ? >= 0
		 RETURNING credits`,
		delta, toMillis(r.now()), userID, delta,
	).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to update credits: %w", err)
	}

	if _, getErr := r.GetByID(ctx, userID); getErr != nil {
		return 0, getErr
	}
	return 0, domain.NewPaymentRequiredError()
}

func duplicateUserError(err error, username string) error {
	switch msg := err.Error(); {
	case strings.Contains(msg, "users.email"):
		return domain.NewDuplicateError("Email already registered")
	case strings.Contains(msg, "users.username"):
		return domain.NewDuplicateError("Username already taken")
	default:
		return domain.NewAlreadyExistsError("User", username)
	}
}
