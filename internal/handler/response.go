package handler

import (
	"context"
	"errors"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.uber.org/zap"

	"github.com/lvyanru/chatctl/internal/domain"
	"github.com/lvyanru/chatctl/pkg/logger"
)

// ErrorBody is the error shape clients expect ({"detail": "..."})
type ErrorBody struct {
	Detail string `json:"detail"`
}

// ErrorResponse maps err to a status and writes {"detail"}
func ErrorResponse(c *app.RequestContext, err error) {
	status, detail := statusOf(err)
	c.JSON(status, ErrorBody{Detail: detail})
}

// BadRequestResponse rejects a malformed body
func BadRequestResponse(c *app.RequestContext, message string) {
	c.JSON(consts.StatusBadRequest, ErrorBody{Detail: message})
}

func statusOf(err error) (int, string) {
	// user-facing message only; internal detail stays in the logs
	message := func(fallback string) string {
		var de *domain.DomainError
		if errors.As(err, &de) && de.UserMessage() != "" {
			return de.UserMessage()
		}
		return fallback
	}

	switch {
	case domain.IsValidation(err):
		return consts.StatusBadRequest, message("Invalid request")
	case domain.IsAlreadyExists(err):
		return consts.StatusBadRequest, message("Already exists")
	case domain.IsAuthExpired(err):
		return consts.StatusUnauthorized, message("Not authenticated")
	case domain.IsPaymentRequired(err):
		return consts.StatusPaymentRequired, message("Insufficient credits")
	case domain.IsForbidden(err):
		return consts.StatusForbidden, message("Not authorized")
	case domain.IsNotFound(err):
		return consts.StatusNotFound, message("Not found")
	case domain.IsUpstream(err):
		return consts.StatusInternalServerError, message("Failed to generate AI response")
	default:
		return consts.StatusInternalServerError, "Internal server error"
	}
}

// currentUserID reads the id the JWT middleware stored
func currentUserID(c *app.RequestContext) (string, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// requireUser writes 401 when the request carries no identity
func requireUser(c *app.RequestContext) (string, bool) {
	id, ok := currentUserID(c)
	if !ok {
		ErrorResponse(c, domain.NewUnauthorizedError("Not authenticated"))
	}
	return id, ok
}

// requestLogger returns the request-scoped logger set by middleware.Logger
func requestLogger(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	return logger.FromContextOr(ctx, fallback)
}
