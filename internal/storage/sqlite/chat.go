package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dkeye/StudyRoom/internal/domain"
)

type ChatLog struct {
	db *sql.DB
}

func NewChatLog(db *sql.DB) *ChatLog { return &ChatLog{db: db} }

func (c *ChatLog) PersistChatMessage(ctx context.Context, msg domain.ChatMessage) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO chat_messages (room_key, user_id, name, body, sent_at) VALUES (?, ?, ?, ?, ?)`,
		string(msg.Room), string(msg.UserID), msg.Name, msg.Text, formatTime(msg.At))
	return mapError(err)
}

// History returns up to limit most recent lines, oldest first.
func (c *ChatLog) History(ctx context.Context, room domain.RoomKey, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := c.db.QueryContext(ctx,
		`SELECT user_id, name, body, sent_at FROM (
			SELECT id, user_id, name, body, sent_at FROM chat_messages
			WHERE room_key = ? ORDER BY id DESC LIMIT ?
		 ) ORDER BY id`,
		string(room), limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []domain.ChatMessage
	for rows.Next() {
		msg := domain.ChatMessage{Room: room}
		var user, at string
		if err := rows.Scan(&user, &msg.Name, &msg.Text, &at); err != nil {
			return nil, fmt.Errorf("chat message: %w", err)
		}
		msg.UserID = domain.UserID(user)
		if msg.At, err = parseTime(at); err != nil {
			return nil, fmt.Errorf("chat message sent_at: %w", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}
