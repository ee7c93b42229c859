package signal

import "github.com/dkeye/StudyRoom/internal/core"

// Close codes sent with a rejected join, in the private 4000-4999 range.
const (
	CloseKicked             = 4403
	CloseUnknownRoom        = 4404
	CloseScheduleUnresolved = 4409
	CloseInternal           = 4500
)

func closeCodeFor(reason string) int {
	switch reason {
	case core.ReasonKicked:
		return CloseKicked
	case core.ReasonUnknownRoom:
		return CloseUnknownRoom
	case core.ReasonScheduleUnresolved:
		return CloseScheduleUnresolved
	default:
		return CloseInternal
	}
}
