package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lvyanru/chatctl/internal/domain"
	"github.com/lvyanru/chatctl/internal/domain/entity"
)

// chatRepository is the sqlite implementation of domain.ChatRepository
type chatRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewChatRepository creates a ChatRepository
func NewChatRepository(db *sql.DB) domain.ChatRepository {
	return &chatRepository{
		db:  db,
		now: time.Now,
	}
}

// Create stores the chat, filling ID and CreatedAt when empty
func (r *chatRepository) Create(ctx context.Context, chat *entity.Chat) error {
	if chat.ID == "" {
		chat.ID = uuid.NewString()
	}
	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = r.now().UTC().Truncate(time.Millisecond)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chats (`+chatColumns+`) VALUES (?, ?, ?, ?, ?)`,
		chat.ID, chat.UserID, chat.Message, chat.Response, toMillis(chat.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}
	return nil
}

// ListByUser returns up to limit chats, newest first
func (r *chatRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*entity.Chat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+chatColumns+` FROM chats WHERE user_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	chats := make([]*entity.Chat, 0, limit)
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	return chats, nil
}
