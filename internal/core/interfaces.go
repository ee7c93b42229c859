package core

import "github.com/dkeye/StudyRoom/internal/domain"

// Frame is a raw serialized payload.
type Frame []byte

// ConnID identifies one open connection. A user may hold several.
type ConnID string

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
// TrySend must never block: it returns ErrClosed or ErrBackpressure instead.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Skipped int
	Dropped []*MemberSession
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	ConnID   ConnID        `json:"conn_id"`
	ID       domain.UserID `json:"user_id"`
	Username string        `json:"name"`
	domain.Flags
}

// RoomSnapshot is a copy-out view of a room taken under the shard lock.
// Version grows on every mutation of the room's session set.
type RoomSnapshot struct {
	Room     domain.RoomKey
	Version  uint64
	Members  []MemberDTO
	Sessions []*MemberSession
}

type RoomInfo struct {
	Key         domain.RoomKey `json:"room"`
	MemberCount int            `json:"client_count"`
}
