package app

import (
	"context"
	"time"

	"github.com/dkeye/StudyRoom/internal/core"
	"github.com/dkeye/StudyRoom/internal/domain"
	"github.com/rs/zerolog/log"
)

// ChatSink persists chat lines off the delivery path. A full queue drops the
// line; storage errors are logged and forgotten.
type ChatSink struct {
	store   core.ChatStore
	queue   chan domain.ChatMessage
	timeout time.Duration
}

func NewChatSink(store core.ChatStore, buffer int, timeout time.Duration) *ChatSink {
	if buffer <= 0 {
		buffer = 256
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &ChatSink{store: store, queue: make(chan domain.ChatMessage, buffer), timeout: timeout}
}

// Enqueue never blocks. It reports whether the line was queued.
func (s *ChatSink) Enqueue(msg domain.ChatMessage) bool {
	if s == nil || s.store == nil {
		return false
	}
	select {
	case s.queue <- msg:
		return true
	default:
		log.Warn().Str("module", "app.sink").Str("room", string(msg.Room)).Msg("chat sink full, dropping message")
		return false
	}
}

// Run persists queued lines until ctx is done, then flushes what is still
// queued, each write under its own timeout.
func (s *ChatSink) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			n := s.drain(ctx)
			log.Info().Str("module", "app.sink").Int("flushed", n).Msg("chat sink stopped")
			return nil
		case msg := <-s.queue:
			s.persist(ctx, msg)
		}
	}
}

func (s *ChatSink) drain(ctx context.Context) int {
	n := 0
	for {
		select {
		case msg := <-s.queue:
			s.persist(ctx, msg)
			n++
		default:
			return n
		}
	}
}

func (s *ChatSink) persist(ctx context.Context, msg domain.ChatMessage) {
	// bounded by the write timeout only, so a flush during shutdown completes
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := s.store.PersistChatMessage(wctx, msg); err != nil {
		log.Error().Err(err).Str("module", "app.sink").Str("room", string(msg.Room)).Str("user", string(msg.UserID)).Msg("persist chat message")
	}
}
