package handler

import (
	"context"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/cloudwego/hertz/pkg/protocol/http1/resp"
	"go.uber.org/zap"

	"github.com/lvyanru/chatctl/internal/domain"
	"github.com/lvyanru/chatctl/internal/handler/dto"
)

const mimeEventStream = "text/event-stream"

// ChatHandler serves chat requests
type ChatHandler struct {
	usecase domain.ChatUsecase
	logger  *zap.Logger
}

// NewChatHandler creates a ChatHandler
func NewChatHandler(usecase domain.ChatUsecase, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		usecase: usecase,
		logger:  logger,
	}
}

// Chat answers one message. With Accept: text/event-stream the reply text is
// written raw as it is produced (chunked transfer, no event framing);
// otherwise the whole chat is returned as JSON.
// POST /api/chat/
func (h *ChatHandler) Chat(ctx context.Context, c *app.RequestContext) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req dto.ChatRequest
	if err := c.BindJSON(&req); err != nil {
		BadRequestResponse(c, "invalid request body")
		return
	}

	stream := strings.Contains(string(c.GetHeader("Accept")), mimeEventStream)
	requestLogger(ctx, h.logger).Debug("chat request received", zap.String("user_id", userID), zap.Bool("stream", stream))

	if stream {
		h.handleStreaming(ctx, c, userID, req.Message)
		return
	}

	chat, err := h.usecase.Chat(ctx, userID, req.Message)
	if err != nil {
		h.logChatError(ctx, userID, err)
		ErrorResponse(c, err)
		return
	}

	c.JSON(consts.StatusOK, dto.ToChatResponse(chat))
}

func (h *ChatHandler) handleStreaming(ctx context.Context, c *app.RequestContext, userID, message string) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	streamCh, err := h.usecase.ChatStreaming(ctx, userID, message)
	if err != nil {
		h.logChatError(ctx, userID, err)
		ErrorResponse(c, err)
		return
	}

	c.SetStatusCode(consts.StatusOK)
	c.Response.Header.Set("Content-Type", mimeEventStream+"; charset=utf-8")
	c.Response.Header.Set("Cache-Control", "no-cache")
	c.Response.HijackWriter(resp.NewChunkedBodyWriter(&c.Response, c.GetWriter()))

	broken := false
	for chunk := range streamCh {
		if broken {
			continue
		}
		if chunk.Error != "" {
			requestLogger(ctx, h.logger).Warn("stream failed", zap.String("user_id", userID), zap.String("error", chunk.Error))
			// the status is already sent; dropping the connection is the only
			// way left to tell the client the reply is incomplete
			cancel()
			if conn := c.GetConn(); conn != nil {
				_ = conn.Close()
			}
			broken = true
			continue
		}
		if chunk.Text == "" {
			continue
		}

		c.Write([]byte(chunk.Text))
		if err := c.Flush(); err != nil {
			requestLogger(ctx, h.logger).Info("client went away", zap.String("user_id", userID), zap.Error(err))
			cancel()
			broken = true
		}
	}
}

// History returns the latest chats
// GET /api/chat/
func (h *ChatHandler) History(ctx context.Context, c *app.RequestContext) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	chats, err := h.usecase.History(ctx, userID)
	if err != nil {
		requestLogger(ctx, h.logger).Error("failed to load history", zap.String("user_id", userID), zap.Error(err))
		ErrorResponse(c, err)
		return
	}

	c.JSON(consts.StatusOK, dto.ToChatListResponse(chats))
}

func (h *ChatHandler) logChatError(ctx context.Context, userID string, err error) {
	if domain.IsValidation(err) || domain.IsPaymentRequired(err) {
		requestLogger(ctx, h.logger).Info("chat rejected", zap.String("user_id", userID), zap.Error(err))
		return
	}
	requestLogger(ctx, h.logger).Error("chat failed", zap.String("user_id", userID), zap.Error(err))
}
