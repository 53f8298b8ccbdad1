package entity

import "time"

// Chat one answered message
type Chat struct {
	ID        string
	UserID    string
	Message   string
	Response  string
	CreatedAt time.Time
}

// StreamChunk piece of a streamed reply
type StreamChunk struct {
	Text  string
	IsEnd bool
	Error string
}
