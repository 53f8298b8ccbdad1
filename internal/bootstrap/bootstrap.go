package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/lvyanru/chatctl/internal/config"
	"github.com/lvyanru/chatctl/internal/domain"
	"github.com/lvyanru/chatctl/internal/handler"
	infradb "github.com/lvyanru/chatctl/internal/infrastructure/database"
	"github.com/lvyanru/chatctl/internal/infrastructure/responder"
	"github.com/lvyanru/chatctl/internal/router"
	"github.com/lvyanru/chatctl/internal/usecase"
)

// Demo account created when seed.demo_user is set
const (
	DemoUsername = "demo"
	DemoEmail    = "demo@example.com"
	DemoPassword = "demo1234"
	DemoCredits  = 10
)

// Server holds the wired dev server components
type Server struct {
	Handlers router.Handlers
	Users    domain.UserUsecase
}

// Wire builds repositories, usecases and handlers on top of db
func Wire(cfg *config.Config, db *sql.DB, logger *zap.Logger) (*Server, error) {
	userRepo := infradb.NewUserRepository(db)
	chatRepo := infradb.NewChatRepository(db)
	notificationRepo := infradb.NewNotificationRepository(db)
	paymentRepo := infradb.NewPaymentRepository(db)

	userUsecase := usecase.NewUserUsecase(userRepo, notificationRepo, logger)
	chatUsecase := usecase.NewChatUsecase(
		responder.NewEcho(cfg.Responder, logger),
		chatRepo,
		userRepo,
		logger,
	)
	notificationUsecase := usecase.NewNotificationUsecase(notificationRepo, logger)
	paymentUsecase := usecase.NewPaymentUsecase(paymentRepo, notificationRepo, cfg.Payment.ReturnURL, logger)

	userHandler, err := handler.NewUserHandler(userUsecase, cfg.JWT, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create jwt middleware: %w", err)
	}

	return &Server{
		Handlers: router.Handlers{
			User:         userHandler,
			Chat:         handler.NewChatHandler(chatUsecase, logger),
			Notification: handler.NewNotificationHandler(notificationUsecase, logger),
			Payment:      handler.NewPaymentHandler(paymentUsecase, logger),
			Health:       handler.NewHealthHandler(db),
		},
		Users: userUsecase,
	}, nil
}

// SeedDemoUser creates the demo account unless it exists
func (s *Server) SeedDemoUser(ctx context.Context, logger *zap.Logger) error {
	user, err := s.Users.EnsureUser(ctx, DemoUsername, DemoEmail, DemoPassword, DemoCredits)
	if err != nil {
		return fmt.Errorf("failed to seed demo user: %w", err)
	}
	logger.Info("demo user ready",
		zap.String("email", DemoEmail),
		zap.String("user_id", user.ID),
		zap.Int("credits", user.Credits),
	)
	return nil
}
