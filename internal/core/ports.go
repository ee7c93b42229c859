//go:generate go run go.uber.org/mock/mockgen -source=ports.go -destination=../mocks/mock_ports.go -package=mocks
package core

import (
	"context"

	"github.com/dkeye/StudyRoom/internal/domain"
)

// ChatStore persists chat lines. Callers treat it as best-effort.
type ChatStore interface {
	PersistChatMessage(ctx context.Context, msg domain.ChatMessage) error
}

// Directory resolves users and rooms owned by the surrounding application.
// Both lookups return ErrNotFound for unknown ids.
type Directory interface {
	ResolveDisplayName(ctx context.Context, user domain.UserID) (string, error)
	LookupRoom(ctx context.Context, room domain.RoomKey) (domain.Room, error)
}
