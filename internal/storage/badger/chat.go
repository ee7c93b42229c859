// Package badger keeps the chat log in an embedded Badger key-value store.
package badger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/dkeye/StudyRoom/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Open opens (or creates) a Badger directory. An empty path keeps
// everything in memory.
func Open(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger %q: %w", path, err)
	}
	log.Info().Str("module", "storage.badger").Str("path", path).Msg("chat log ready")
	return db, nil
}

type ChatLog struct {
	db *badger.DB
}

func NewChatLog(db *badger.DB) *ChatLog { return &ChatLog{db: db} }

// roomPrefix carries the room key length so "a" never prefixes "a:b".
func roomPrefix(room domain.RoomKey) []byte {
	return []byte(fmt.Sprintf("msg:%d:%s:", len(room), room))
}

// PersistChatMessage stores msg under "msg:{len}:{room}:{unixnano19}:{uuid}".
// The zero padded timestamp keeps a room's keys in time order; the uuid
// separates lines sent in the same nanosecond.
func (c *ChatLog) PersistChatMessage(ctx context.Context, msg domain.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := fmt.Appendf(roomPrefix(msg.Room), "%019d:%s", msg.At.UnixNano(), uuid.New())
	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// History returns up to limit most recent lines, oldest first.
func (c *ChatLog) History(ctx context.Context, room domain.RoomKey, limit int) ([]domain.ChatMessage, error) {
	var out []domain.ChatMessage
	err := c.db.View(func(txn *badger.Txn) error {
		prefix := roomPrefix(room)
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts from the largest possible key of the room.
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(out) == limit {
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			var msg domain.ChatMessage
			err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &msg)
			})
			if err != nil {
				return fmt.Errorf("chat message %q: %w", it.Item().Key(), err)
			}
			out = append(out, msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
