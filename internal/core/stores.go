package core

import (
	"context"
	"time"

	"github.com/dkeye/StudyRoom/internal/domain"
)

// ScheduleStore backs occurrence resolution. Lookups return ErrNotFound when
// nothing matches.
type ScheduleStore interface {
	LookupOccurrence(ctx context.Context, subject domain.SubjectID, id domain.OccurrenceID) (domain.Occurrence, error)
	FindActiveOccurrence(ctx context.Context, subject domain.SubjectID, now time.Time) (domain.Occurrence, error)
	// ListOccurrencesOn returns the subject's rounds dated day, ordered by round.
	ListOccurrencesOn(ctx context.Context, subject domain.SubjectID, day domain.Day) ([]domain.Occurrence, error)
	// CreateOccurrence stores an auto round for day numbered max(round)+1.
	// It returns ErrConflict when another auto round for (subject, day) exists.
	CreateOccurrence(ctx context.Context, subject domain.SubjectID, day domain.Day) (domain.Occurrence, error)
}

// ParticipationStore keeps attendance records. At most one open record may
// exist per key.
type ParticipationStore interface {
	// OpenParticipation inserts an open record unless one already exists.
	OpenParticipation(ctx context.Context, key domain.ParticipationKey, at time.Time) (created bool, err error)
	// CloseParticipation stamps the most recent open record for key.
	CloseParticipation(ctx context.Context, key domain.ParticipationKey, at time.Time) (closed bool, err error)
	ListParticipation(ctx context.Context, occurrence domain.OccurrenceID) ([]domain.Participation, error)
}

type KickStore interface {
	MarkKicked(ctx context.Context, marker domain.KickMarker) error
	IsKicked(ctx context.Context, room domain.RoomKey, user domain.UserID, on domain.Day) (bool, error)
}

type ChatHistory interface {
	History(ctx context.Context, room domain.RoomKey, limit int) ([]domain.ChatMessage, error)
}

// ChatLog is a ChatStore that can also be read back.
type ChatLog interface {
	ChatStore
	ChatHistory
}
