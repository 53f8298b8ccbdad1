package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.uber.org/zap"

	"github.com/lvyanru/chatctl/internal/domain"
	"github.com/lvyanru/chatctl/internal/handler/dto"
)

// PaymentHandler serves /api/payments
type PaymentHandler struct {
	usecase domain.PaymentUsecase
	logger  *zap.Logger
}

// NewPaymentHandler creates a PaymentHandler
func NewPaymentHandler(usecase domain.PaymentUsecase, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		usecase: usecase,
		logger:  logger,
	}
}

// Packages GET /api/payments/packages
func (h *PaymentHandler) Packages(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, dto.ToPackagesResponse(h.usecase.Packages()))
}

// CreateCheckoutSession POST /api/payments/create-checkout-session
func (h *PaymentHandler) CreateCheckoutSession(ctx context.Context, c *app.RequestContext) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req dto.CheckoutRequest
	if err := c.BindJSON(&req); err != nil {
		BadRequestResponse(c, "invalid request body")
		return
	}

	checkoutURL, err := h.usecase.CreateCheckout(ctx, userID, req.PackageID)
	if err != nil {
		requestLogger(ctx, h.logger).Info("checkout failed", zap.String("user_id", userID), zap.Error(err))
		ErrorResponse(c, err)
		return
	}

	c.JSON(consts.StatusOK, dto.CheckoutResponse{CheckoutURL: checkoutURL})
}

// VerifyPayment POST /api/payments/verify-payment
func (h *PaymentHandler) VerifyPayment(ctx context.Context, c *app.RequestContext) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req dto.VerifyPaymentRequest
	if err := c.BindJSON(&req); err != nil {
		BadRequestResponse(c, "invalid request body")
		return
	}

	balance, err := h.usecase.Verify(ctx, userID, req.SessionID)
	if err != nil {
		requestLogger(ctx, h.logger).Info("payment verification failed", zap.String("user_id", userID), zap.Error(err))
		ErrorResponse(c, err)
		return
	}

	c.JSON(consts.StatusOK, dto.VerifyPaymentResponse{Success: true, Credits: balance})
}

// TransactionHistory GET /api/payments/transaction-history
func (h *PaymentHandler) TransactionHistory(ctx context.Context, c *app.RequestContext) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	list, err := h.usecase.History(ctx, userID)
	if err != nil {
		requestLogger(ctx, h.logger).Error("failed to list transactions", zap.String("user_id", userID), zap.Error(err))
		ErrorResponse(c, err)
		return
	}

	c.JSON(consts.StatusOK, dto.ToTransactionListResponse(list))
}

// PaymentReturn is where the simulated checkout lands; it shows the values
// `chatctl credits verify` needs
// GET /payment/return
func (h *PaymentHandler) PaymentReturn(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, map[string]string{
		"payment_success": c.Query("payment_success"),
		"session_id":      c.Query("session_id"),
		"next":            "run: chatctl credits verify " + c.Query("session_id"),
	})
}
