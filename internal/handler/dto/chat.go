package dto

import (
	"time"

	"github.com/lvyanru/chatctl/internal/domain/entity"
)

// ChatRequest send-message payload
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse one answered message; also the history item
type ChatResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

// ToChatResponse converts entity.Chat to ChatResponse
func ToChatResponse(c *entity.Chat) *ChatResponse {
	return &ChatResponse{
		ID:        c.ID,
		UserID:    c.UserID,
		Message:   c.Message,
		Response:  c.Response,
		CreatedAt: c.CreatedAt,
	}
}

// ToChatListResponse converts a history page
func ToChatListResponse(chats []*entity.Chat) []*ChatResponse {
	out := make([]*ChatResponse, len(chats))
	for i, c := range chats {
		out[i] = ToChatResponse(c)
	}
	return out
}
