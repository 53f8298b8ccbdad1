package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/lvyanru/chatctl/internal/domain"
	"github.com/lvyanru/chatctl/internal/domain/entity"
)

const (
	// HistoryLimit is how many chats History returns
	HistoryLimit = 20

	maxMessageLength = 10000
	chatCost         = 1
)

// chatUsecase charges one credit per reply, refunds it when the reply fails
// and stores the finished exchange
type chatUsecase struct {
	responder domain.Responder
	chatRepo  domain.ChatRepository
	userRepo  domain.UserRepository
	logger    *zap.Logger
}

// NewChatUsecase creates a ChatUsecase
func NewChatUsecase(
	responder domain.Responder,
	chatRepo domain.ChatRepository,
	userRepo domain.UserRepository,
	logger *zap.Logger,
) domain.ChatUsecase {
	return &chatUsecase{
		responder: responder,
		chatRepo:  chatRepo,
		userRepo:  userRepo,
		logger:    logger,
	}
}

// Chat collects the whole reply before returning
func (u *chatUsecase) Chat(ctx context.Context, userID, message string) (*entity.Chat, error) {
	message, err := validateMessage(message)
	if err != nil {
		return nil, err
	}

	if err := u.charge(ctx, userID); err != nil {
		return nil, err
	}

	streamCh, err := u.responder.Reply(ctx, message)
	if err != nil {
		u.refund(ctx, userID, err)
		return nil, domain.NewUpstreamError(err)
	}

	var reply strings.Builder
	ended := false
	for chunk := range streamCh {
		if chunk.Error != "" {
			err := errors.New(chunk.Error)
			u.refund(ctx, userID, err)
			return nil, domain.NewUpstreamError(err)
		}
		if chunk.IsEnd {
			ended = true
			continue
		}
		reply.WriteString(chunk.Text)
	}
	if !ended {
		err := interrupted(ctx)
		u.refund(ctx, userID, err)
		return nil, domain.NewUpstreamError(err)
	}

	return u.store(ctx, userID, message, reply.String()), nil
}

// ChatStreaming forwards the reply chunks as they arrive. The returned channel
// is closed after the last chunk; a failed or abandoned stream is refunded.
func (u *chatUsecase) ChatStreaming(ctx context.Context, userID, message string) (<-chan entity.StreamChunk, error) {
	message, err := validateMessage(message)
	if err != nil {
		return nil, err
	}

	if err := u.charge(ctx, userID); err != nil {
		return nil, err
	}

	streamCh, err := u.responder.Reply(ctx, message)
	if err != nil {
		u.refund(ctx, userID, err)
		return nil, domain.NewUpstreamError(err)
	}

	out := make(chan entity.StreamChunk, 16)
	go func() {
		defer close(out)

		var reply strings.Builder
		for chunk := range streamCh {
			select {
			case out <- chunk:
			case <-ctx.Done():
				u.refund(ctx, userID, context.Cause(ctx))
				return
			}

			switch {
			case chunk.Error != "":
				u.refund(ctx, userID, errors.New(chunk.Error))
				return
			case chunk.IsEnd:
				u.store(ctx, userID, message, reply.String())
				return
			default:
				reply.WriteString(chunk.Text)
			}
		}
		u.refund(ctx, userID, interrupted(ctx))
	}()

	return out, nil
}

// History returns the latest chats, newest first
func (u *chatUsecase) History(ctx context.Context, userID string) ([]*entity.Chat, error) {
	chats, err := u.chatRepo.ListByUser(ctx, userID, HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	return chats, nil
}

func (u *chatUsecase) charge(ctx context.Context, userID string) error {
	balance, err := u.userRepo.AddCredits(ctx, userID, -chatCost)
	if err != nil {
		if domain.IsPaymentRequired(err) || domain.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("failed to charge credits: %w", err)
	}
	u.logger.Debug("credit charged", zap.String("user_id", userID), zap.Int("balance", balance))
	return nil
}

// refund runs even when ctx is already cancelled
func (u *chatUsecase) refund(ctx context.Context, userID string, cause error) {
	balance, err := u.userRepo.AddCredits(context.WithoutCancel(ctx), userID, chatCost)
	if err != nil {
		u.logger.Error("failed to refund credit", zap.String("user_id", userID), zap.Error(err))
		return
	}
	u.logger.Warn("reply failed, credit refunded",
		zap.String("user_id", userID),
		zap.Int("balance", balance),
		zap.Error(cause),
	)
}

// store persists the exchange; the credit stays spent even if this fails
func (u *chatUsecase) store(ctx context.Context, userID, message, reply string) *entity.Chat {
	chat := &entity.Chat{
		UserID:   userID,
		Message:  message,
		Response: reply,
	}
	if err := u.chatRepo.Create(context.WithoutCancel(ctx), chat); err != nil {
		u.logger.Error("failed to store chat", zap.String("user_id", userID), zap.Error(err))
	}
	return chat
}

// interrupted describes a reply stream that closed without its end marker
func interrupted(ctx context.Context) error {
	if cause := context.Cause(ctx); cause != nil {
		return fmt.Errorf("reply interrupted: %w", cause)
	}
	return errors.New("reply ended without completing")
}

func validateMessage(message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", domain.NewValidationError("message is required")
	}
	if utf8.RuneCountInString(message) > maxMessageLength {
		return "", domain.NewValidationError(fmt.Sprintf("message too long (max %d characters)", maxMessageLength))
	}
	return message, nil
}
