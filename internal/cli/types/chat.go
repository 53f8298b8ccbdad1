package types

import "time"

// ChatRequest represents the send-message payload
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse represents a non-streamed reply. Only Response is required;
// the remaining fields are echoed by servers that persist the exchange.
type ChatResponse struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Message   string    `json:"message,omitempty"`
	Response  *string   `json:"response"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// ChatRecord is one entry of the server-side chat history
type ChatRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}
