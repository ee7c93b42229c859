package domain

import "time"

// ParticipationKey identifies the attendance triple a record belongs to.
type ParticipationKey struct {
	OccurrenceID OccurrenceID
	Room         RoomKey
	User         UserID
}

// Participation is a join/leave pair; LeftAt stays nil while connected.
type Participation struct {
	ID       int64            `json:"id"`
	Key      ParticipationKey `json:"-"`
	JoinedAt time.Time        `json:"joined_at"`
	LeftAt   *time.Time       `json:"left_at,omitempty"`
}

func (p Participation) Open() bool { return p.LeftAt == nil }

// KickMarker suppresses rejoin of User into Room for the rest of the day of At.
type KickMarker struct {
	Room RoomKey
	User UserID
	At   time.Time
}
