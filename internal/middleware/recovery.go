package middleware

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into a 500 {"detail"} response
func Recovery(logger *zap.Logger) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					zap.String("request_id", GetRequestID(c)),
					zap.String("method", string(c.Method())),
					zap.String("path", string(c.Path())),
					zap.String("panic", fmt.Sprintf("%v", err)),
					zap.ByteString("stack", debug.Stack()),
				)

				c.AbortWithStatusJSON(consts.StatusInternalServerError, utils.H{
					"detail": "Internal server error",
				})
			}
		}()

		c.Next(ctx)
	}
}
