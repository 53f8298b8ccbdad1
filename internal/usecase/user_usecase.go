package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/lvyanru/chatctl/internal/domain"
	"github.com/lvyanru/chatctl/internal/domain/entity"
)

const (
	// SignupCredits granted to every new account
	SignupCredits = 5

	welcomeMessage = "Welcome! You received 5 free credits to start chatting."
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,50}$`)
	emailRegex    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// userUsecase implements domain.UserUsecase
type userUsecase struct {
	userRepo         domain.UserRepository
	notificationRepo domain.NotificationRepository
	logger           *zap.Logger
}

// NewUserUsecase creates a UserUsecase
func NewUserUsecase(
	userRepo domain.UserRepository,
	notificationRepo domain.NotificationRepository,
	logger *zap.Logger,
) domain.UserUsecase {
	return &userUsecase{
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		logger:           logger,
	}
}

// Register creates the account, grants the signup credits and leaves a welcome notification
func (u *userUsecase) Register(ctx context.Context, username, email, password string) (*entity.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if err := validateRegisterRequest(username, email, password); err != nil {
		return nil, err
	}

	user, err := u.create(ctx, username, email, password, SignupCredits)
	if err != nil {
		return nil, err
	}

	welcome := &entity.Notification{UserID: user.ID, Message: welcomeMessage}
	if err := u.notificationRepo.Create(ctx, welcome); err != nil {
		// the account is usable without it
		u.logger.Warn("failed to create welcome notification", zap.String("user_id", user.ID), zap.Error(err))
	}

	u.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// EnsureUser is used for seeding; an existing email is returned unchanged
func (u *userUsecase) EnsureUser(ctx context.Context, username, email, password string, credits int) (*entity.User, error) {
	existing, err := u.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !domain.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	return u.create(ctx, username, email, password, credits)
}

func (u *userUsecase) create(ctx context.Context, username, email, password string, credits int) (*entity.User, error) {
	if _, err := u.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, domain.NewDuplicateError("Email already registered")
	} else if !domain.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	if _, err := u.userRepo.GetByUsername(ctx, username); err == nil {
		return nil, domain.NewDuplicateError("Username already taken")
	} else if !domain.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := u.userRepo.Create(ctx, &entity.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Credits:      credits,
	})
	if err != nil {
		if domain.IsAlreadyExists(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login checks email and password
func (u *userUsecase) Login(ctx context.Context, email, password string) (*entity.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := u.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.NewUnauthorizedError("Invalid email or password")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := verifyPassword(user.PasswordHash, password); err != nil {
		return nil, domain.NewUnauthorizedError("Invalid email or password")
	}

	u.logger.Info("user logged in", zap.String("user_id", user.ID))
	return user, nil
}

// GetUser returns the caller's own record
func (u *userUsecase) GetUser(ctx context.Context, requesterID, userID string) (*entity.User, error) {
	if requesterID != userID {
		return nil, domain.NewForbiddenError("Not authorized to access this user")
	}

	user, err := u.userRepo.GetByID(ctx, userID)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, &domain.DomainError{Code: "NOT_FOUND", Message: "User not found", Err: domain.ErrNotFound}
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfile renames the user; the new name must not belong to someone else
func (u *userUsecase) UpdateProfile(ctx context.Context, userID, username string) (*entity.User, error) {
	username = strings.TrimSpace(username)
	if !usernameRegex.MatchString(username) {
		return nil, domain.NewValidationError("username must be 3-50 characters and contain only letters, numbers, and underscores")
	}

	if other, err := u.userRepo.GetByUsername(ctx, username); err == nil {
		if other.ID != userID {
			return nil, domain.NewDuplicateError("Username already taken")
		}
		return other, nil
	} else if !domain.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	user, err := u.userRepo.UpdateUsername(ctx, userID, username)
	if err != nil {
		return nil, err
	}

	u.logger.Info("profile updated", zap.String("user_id", userID), zap.String("username", username))
	return user, nil
}

// ============ helpers ============

func validateRegisterRequest(username, email, password string) error {
	if !usernameRegex.MatchString(username) {
		return domain.NewValidationError("username must be 3-50 characters and contain only letters, numbers, and underscores")
	}

	if !emailRegex.MatchString(email) {
		return domain.NewValidationError("a valid email address is required")
	}

	if len(password) < 6 {
		return domain.NewValidationError("password must be at least 6 characters")
	}
	if len(password) > 72 {
		return domain.NewValidationError("password too long (max 72 characters)")
	}

	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func verifyPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
