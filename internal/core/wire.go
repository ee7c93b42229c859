package core

import (
	"encoding/json"
	"time"

	"github.com/dkeye/StudyRoom/internal/domain"
)

type EventType string

const (
	EventEnter        EventType = "ENTER"
	EventTalk         EventType = "TALK"
	EventControl      EventType = "CONTROL"
	EventMemberList   EventType = "MEMBER_LIST_UPDATED"
	EventNotification EventType = "NOTIFICATION"
	EventPing         EventType = "PING"
	EventPong         EventType = "PONG"
	EventKicked       EventType = "KICKED"
	EventRejected     EventType = "REJECTED"
	EventError        EventType = "ERROR"
)

// Envelope is the discriminator every inbound frame is decoded into first.
type Envelope struct {
	Type EventType `json:"type"`
}

type TalkPayload struct {
	Text string `json:"text"`
}

type ControlPayload struct {
	domain.FlagsDelta
}

type EnterEvent struct {
	Type       EventType           `json:"type"`
	Room       domain.RoomKey      `json:"room"`
	ConnID     ConnID              `json:"conn_id"`
	UserID     domain.UserID       `json:"user_id"`
	Name       string              `json:"name"`
	Occurrence domain.OccurrenceID `json:"occurrence_id"`
}

type TalkEvent struct {
	Type   EventType      `json:"type"`
	Room   domain.RoomKey `json:"room"`
	UserID domain.UserID  `json:"user_id"`
	Name   string         `json:"name"`
	Text   string         `json:"text"`
	At     time.Time      `json:"at"`
}

type MemberListEvent struct {
	Type    EventType      `json:"type"`
	Room    domain.RoomKey `json:"room"`
	Version uint64         `json:"version"`
	Count   int            `json:"count"`
	Members []MemberDTO    `json:"members"`
}

type NotificationEvent struct {
	Type      EventType       `json:"type"`
	Recipient domain.UserID   `json:"recipient"`
	Payload   json.RawMessage `json:"payload"`
	At        time.Time       `json:"at"`
}

type KickedEvent struct {
	Type EventType      `json:"type"`
	Room domain.RoomKey `json:"room"`
	By   domain.UserID  `json:"by"`
}

type RejectedEvent struct {
	Type   EventType      `json:"type"`
	Room   domain.RoomKey `json:"room"`
	Reason string         `json:"reason"`
}

type ErrorEvent struct {
	Type  EventType `json:"type"`
	Error string    `json:"error"`
}

// SendJSON marshals v and hands it to conn without blocking.
func SendJSON(conn SignalConnection, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.TrySend(b)
}
