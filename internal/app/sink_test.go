package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/dkeye/StudyRoom/internal/app"
	"github.com/dkeye/StudyRoom/internal/domain"
	"github.com/dkeye/StudyRoom/internal/storage/memory"
	"github.com/stretchr/testify/require"
)

func TestChatSink_FlushesQueueOnStop(t *testing.T) {
	req := require.New(t)
	chat := memory.NewChatLog()
	sink := app.NewChatSink(chat, 8, time.Second)

	for _, text := range []string{"one", "two", "three"} {
		req.True(sink.Enqueue(domain.ChatMessage{Room: "R1", UserID: "alice", Text: text}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req.NoError(sink.Run(ctx))

	h, err := chat.History(context.Background(), "R1", 0)
	req.NoError(err)
	req.Len(h, 3)
}

func TestChatSink_FullQueueDrops(t *testing.T) {
	req := require.New(t)
	sink := app.NewChatSink(memory.NewChatLog(), 1, time.Second)

	req.True(sink.Enqueue(domain.ChatMessage{Room: "R1", Text: "kept"}))
	req.False(sink.Enqueue(domain.ChatMessage{Room: "R1", Text: "dropped"}))
}
