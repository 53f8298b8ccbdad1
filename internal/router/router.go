package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"
	"go.uber.org/zap"

	"github.com/lvyanru/chatctl/internal/handler"
	"github.com/lvyanru/chatctl/internal/middleware"
)

// Handlers groups everything Setup mounts
type Handlers struct {
	User         *handler.UserHandler
	Chat         *handler.ChatHandler
	Notification *handler.NotificationHandler
	Payment      *handler.PaymentHandler
	Health       *handler.HealthHandler
}

// Setup sets up all routes
func Setup(h *server.Hertz, hs Handlers, allowOrigins []string, logger *zap.Logger) {
	// Global middleware
	h.Use(middleware.Recovery(logger))
	h.Use(middleware.Logger(logger))
	h.Use(middleware.CORS(allowOrigins))

	// Health check routes (no authentication required)
	h.GET("/ping", hs.Health.Ping)
	h.GET("/health/ready", hs.Health.Readiness)
	h.GET("/health/live", hs.Health.Liveness)

	// Checkout landing page
	h.GET("/payment/return", hs.Payment.PaymentReturn)

	api := h.Group("/api")
	{
		// ============ Public routes ============
		auth := api.Group("/auth")
		{
			auth.POST("/register", hs.User.Register)
			auth.POST("/login", hs.User.Login)
		}
		api.GET("/payments/packages", hs.Payment.Packages)

		// ============ Protected routes (bearer token required) ============
		authorized := api.Group("")
		authorized.Use(hs.User.AuthMiddleware())
		{
			users := authorized.Group("/users")
			{
				users.POST("/update-profile", hs.User.UpdateProfile)
				users.GET("/:id", hs.User.GetUser)
			}

			chat := authorized.Group("/chat")
			{
				chat.POST("/", hs.Chat.Chat)
				chat.GET("/", hs.Chat.History)
			}

			notifications := authorized.Group("/notifications")
			{
				notifications.GET("/", hs.Notification.List)
				notifications.POST("/", hs.Notification.Create)
				notifications.PUT("/mark-read", hs.Notification.MarkAllRead)
			}

			payments := authorized.Group("/payments")
			{
				payments.POST("/create-checkout-session", hs.Payment.CreateCheckoutSession)
				payments.POST("/verify-payment", hs.Payment.VerifyPayment)
				payments.GET("/transaction-history", hs.Payment.TransactionHistory)
			}
		}
	}
}
