package domain

type (
	RoomKey   string
	SubjectID string
)

// Room is the catalog entry a room key resolves to. SubjectID names the
// schedule the room's sessions are attributed to.
type Room struct {
	Key       RoomKey
	Name      string
	SubjectID SubjectID
	OwnerID   UserID
}
