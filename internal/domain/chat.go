package domain

import "time"

type ChatMessage struct {
	Room   RoomKey   `json:"room"`
	UserID UserID    `json:"user_id"`
	Name   string    `json:"name"`
	Text   string    `json:"text"`
	At     time.Time `json:"at"`
}
