package core

import (
	"time"

	"github.com/dkeye/StudyRoom/internal/domain"
	"github.com/google/uuid"
)

// MemberSession binds domain.Member and its transport endpoint.
// This is what a room stores and fans out to. Identity fields are fixed at
// construction; Flags are only touched through SessionRegistry.
type MemberSession struct {
	ID         ConnID
	Room       domain.RoomKey
	Subject    domain.SubjectID
	Occurrence domain.OccurrenceID
	JoinedAt   time.Time

	meta   *domain.Member
	signal SignalConnection
}

func NewConnID() ConnID { return ConnID(uuid.NewString()) }

func NewMemberSession(room domain.RoomKey, meta *domain.Member, sig SignalConnection) *MemberSession {
	return &MemberSession{
		ID:     NewConnID(),
		Room:   room,
		meta:   meta,
		signal: sig,
	}
}

func (m *MemberSession) Meta() *domain.Member     { return m.meta }
func (m *MemberSession) Signal() SignalConnection { return m.signal }
func (m *MemberSession) UserID() domain.UserID    { return m.meta.User.ID }

func (m *MemberSession) dto() MemberDTO {
	u := m.meta.User
	return MemberDTO{ConnID: m.ID, ID: u.ID, Username: u.Username, Flags: m.meta.Flags}
}

// ParticipationKey is the ledger key this session is attributed to.
func (m *MemberSession) ParticipationKey() domain.ParticipationKey {
	return domain.ParticipationKey{OccurrenceID: m.Occurrence, Room: m.Room, User: m.UserID()}
}
