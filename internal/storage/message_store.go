package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/notify-pipeline/internal/domain"
)

// MessageStore persists chat messages in PostgreSQL
type MessageStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewMessageStore creates a new MessageStore instance
func NewMessageStore(db *sqlx.DB, logger *slog.Logger) *MessageStore {
	return &MessageStore{
		db:     db,
		logger: logger,
	}
}

// CreateSystemMessage stores text in room as a system message with no sender
func (s *MessageStore) CreateSystemMessage(ctx context.Context, text, room string) (*domain.ChatMessage, error) {
	query := `
		INSERT INTO chat_messages (room, text, sender, is_system_message)
		VALUES ($1, $2, NULL, TRUE)
		RETURNING id, room, text, sender, is_system_message, created_at
	`

	var msg domain.ChatMessage
	if err := s.db.GetContext(ctx, &msg, query, room, text); err != nil {
		return nil, fmt.Errorf("failed to insert system message: %w", err)
	}

	s.logger.Debug("System message stored",
		slog.Int64("message_id", msg.ID),
		slog.String("room", room),
	)

	return &msg, nil
}

// MessageCursor marks the last message of a page
type MessageCursor struct {
	CreatedAt time.Time
	ID        int64
}

// MessageFilter selects a page of room messages
type MessageFilter struct {
	Room   string
	Cursor *MessageCursor
	Limit  int
}

// ListRoomMessages returns a page of room messages, newest first. Pass the
// last message of a page as the cursor to get the next one.
func (s *MessageStore) ListRoomMessages(ctx context.Context, filter MessageFilter) ([]domain.ChatMessage, error) {
	query := `
		SELECT id, room, text, sender, is_system_message, created_at
		FROM chat_messages
		WHERE room = $1
	`
	args := []interface{}{filter.Room}
	argIdx := 2

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.ID)
		argIdx += 2
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", argIdx)
	args = append(args, filter.Limit)

	messages := []domain.ChatMessage{}
	if err := s.db.SelectContext(ctx, &messages, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list room messages: %w", err)
	}

	return messages, nil
}
