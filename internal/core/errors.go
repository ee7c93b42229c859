package core

import "errors"

var (
	ErrClosed       = errors.New("connection closed")
	ErrBackpressure = errors.New("backpressure")

	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
	ErrForbidden = errors.New("forbidden")

	ErrKicked             = errors.New("kicked from room for today")
	ErrUnknownRoom        = errors.New("unknown room")
	ErrScheduleUnresolved = errors.New("schedule occurrence unresolved")
)

// Reject reasons surfaced to clients whose join was refused.
const (
	ReasonKicked             = "kicked"
	ReasonUnknownRoom        = "unknown_room"
	ReasonScheduleUnresolved = "schedule_unresolved"
	ReasonInternal           = "internal"
)

// RejectReason maps an admission error to a client-facing reason.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, ErrKicked):
		return ReasonKicked
	case errors.Is(err, ErrUnknownRoom):
		return ReasonUnknownRoom
	case errors.Is(err, ErrScheduleUnresolved):
		return ReasonScheduleUnresolved
	default:
		return ReasonInternal
	}
}
