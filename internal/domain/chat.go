package domain

import (
	"context"

	"github.com/lvyanru/chatctl/internal/domain/entity"
)

// ChatRepository stores answered messages
type ChatRepository interface {
	Create(ctx context.Context, chat *entity.Chat) error

	// ListByUser returns up to limit chats, newest first
	ListByUser(ctx context.Context, userID string, limit int) ([]*entity.Chat, error)
}

// Responder produces the assistant's reply to a message
type Responder interface {
	// Reply streams the reply; the channel is closed after the IsEnd or Error chunk
	Reply(ctx context.Context, message string) (<-chan entity.StreamChunk, error)
}

// ChatUsecase chat operations. Every reply costs one credit, refunded when the
// reply fails.
type ChatUsecase interface {
	// Chat answers message in one piece
	Chat(ctx context.Context, userID, message string) (*entity.Chat, error)

	// ChatStreaming answers message chunk by chunk; the chat is stored once the
	// stream completes
	ChatStreaming(ctx context.Context, userID, message string) (<-chan entity.StreamChunk, error)

	// History returns the most recent chats, newest first
	History(ctx context.Context, userID string) ([]*entity.Chat, error)
}
