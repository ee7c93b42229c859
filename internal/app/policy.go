package app

import (
	"github.com/dkeye/StudyRoom/internal/core"
	"github.com/dkeye/StudyRoom/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	CloseSlow
)

type Policy interface {
	OnBackPressure(room domain.RoomKey, member *core.MemberSession) BackpressureAction
}

// SimplePolicy applies one action to every slow member.
type SimplePolicy struct {
	Action BackpressureAction
}

func (p SimplePolicy) OnBackPressure(domain.RoomKey, *core.MemberSession) BackpressureAction {
	return p.Action
}

// PolicyFromString maps the slow_client_policy config value.
func PolicyFromString(s string) Policy {
	if s == "close" {
		return SimplePolicy{Action: CloseSlow}
	}
	return SimplePolicy{Action: DropFrame}
}
