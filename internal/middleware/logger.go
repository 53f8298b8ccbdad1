package middleware

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lvyanru/chatctl/pkg/logger"
)

// RequestIDKey request id header
const RequestIDKey = "X-Request-ID"

// Logger assigns a request id, puts a request-scoped logger into ctx and logs
// the outcome. Health checks are not logged.
func Logger(base *zap.Logger) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		path := string(c.Path())
		skipLogging := path == "/health/live" || path == "/health/ready"

		requestID := string(c.Request.Header.Peek(RequestIDKey))
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Response.Header.Set(RequestIDKey, requestID)

		reqLogger := logger.WithRequestID(base, requestID).With(
			zap.String("method", string(c.Method())),
			zap.String("path", path),
		)
		if !skipLogging {
			reqLogger.Debug("request started", zap.String("client_ip", c.ClientIP()))
		}

		c.Next(logger.WithContext(ctx, reqLogger))

		if skipLogging {
			return
		}

		latency := time.Since(start)
		statusCode := c.Response.StatusCode()
		fields := []zap.Field{
			zap.Int("status", statusCode),
			zap.Duration("latency", latency),
		}

		switch {
		case statusCode >= 500:
			reqLogger.Error("request completed with server error", fields...)
		case statusCode >= 400:
			reqLogger.Warn("request completed with client error", fields...)
		default:
			reqLogger.Info("request completed", fields...)
		}
	}
}

// GetRequestID returns the id assigned by Logger
func GetRequestID(c *app.RequestContext) string {
	return string(c.Response.Header.Peek(RequestIDKey))
}
