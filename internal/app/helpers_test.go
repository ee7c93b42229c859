package app_test

import (
	"github.com/dkeye/StudyRoom/internal/core"
	"github.com/dkeye/StudyRoom/internal/core/coretest"
	"github.com/dkeye/StudyRoom/internal/domain"
)

func joinRoom(reg *core.SessionRegistry, room domain.RoomKey, user domain.UserID, durable bool) (*core.MemberSession, *coretest.Conn) {
	conn := coretest.NewConn()
	return joinWith(reg, room, user, durable, conn), conn
}

func joinWith(reg *core.SessionRegistry, room domain.RoomKey, user domain.UserID, durable bool, conn core.SignalConnection) *core.MemberSession {
	meta := domain.NewMember(&domain.User{ID: user, Username: "name-" + string(user)})
	meta.Durable = durable
	ms := core.NewMemberSession(room, meta, conn)
	reg.Register(room, ms)
	return ms
}
