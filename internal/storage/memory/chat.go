package memory

import (
	"context"
	"sync"

	"github.com/dkeye/StudyRoom/internal/domain"
)

// ChatLog keeps chat lines per room in arrival order.
type ChatLog struct {
	mu    sync.RWMutex
	rooms map[domain.RoomKey][]domain.ChatMessage
}

func NewChatLog() *ChatLog {
	return &ChatLog{rooms: make(map[domain.RoomKey][]domain.ChatMessage)}
}

func (c *ChatLog) PersistChatMessage(_ context.Context, msg domain.ChatMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[msg.Room] = append(c.rooms[msg.Room], msg)
	return nil
}

// History returns up to limit most recent lines, oldest first.
func (c *ChatLog) History(_ context.Context, room domain.RoomKey, limit int) ([]domain.ChatMessage, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	msgs := c.rooms[room]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]domain.ChatMessage(nil), msgs...), nil
}
