package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.uber.org/zap"

	"github.com/lvyanru/chatctl/internal/domain"
	"github.com/lvyanru/chatctl/internal/handler/dto"
)

// NotificationHandler serves /api/notifications
type NotificationHandler struct {
	usecase domain.NotificationUsecase
	logger  *zap.Logger
}

// NewNotificationHandler creates a NotificationHandler
func NewNotificationHandler(usecase domain.NotificationUsecase, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		usecase: usecase,
		logger:  logger,
	}
}

// List GET /api/notifications/
func (h *NotificationHandler) List(ctx context.Context, c *app.RequestContext) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	list, err := h.usecase.List(ctx, userID)
	if err != nil {
		requestLogger(ctx, h.logger).Error("failed to list notifications", zap.String("user_id", userID), zap.Error(err))
		ErrorResponse(c, err)
		return
	}

	c.JSON(consts.StatusOK, dto.ToNotificationListResponse(list))
}

// Create POST /api/notifications/
func (h *NotificationHandler) Create(ctx context.Context, c *app.RequestContext) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req dto.CreateNotificationRequest
	if err := c.BindJSON(&req); err != nil {
		BadRequestResponse(c, "invalid request body")
		return
	}

	n, err := h.usecase.Create(ctx, userID, req.Message)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	c.JSON(consts.StatusOK, dto.ToNotificationResponse(n))
}

// MarkAllRead PUT /api/notifications/mark-read
func (h *NotificationHandler) MarkAllRead(ctx context.Context, c *app.RequestContext) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.usecase.MarkAllRead(ctx, userID); err != nil {
		requestLogger(ctx, h.logger).Error("failed to mark notifications read", zap.String("user_id", userID), zap.Error(err))
		ErrorResponse(c, err)
		return
	}

	c.JSON(consts.StatusOK, dto.SuccessResponse{Success: true})
}
