// Package ledger records attendance join/leave pairs.
package ledger

import (
	"context"
	"time"

	"github.com/dkeye/StudyRoom/internal/core"
	"github.com/dkeye/StudyRoom/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Ledger is idempotent under repeated joins and leaves for the same key.
// Storage failures are logged, never returned: attendance is best-effort.
type Ledger struct {
	store core.ParticipationStore
	now   func() time.Time
}

func New(store core.ParticipationStore, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{store: store, now: now}
}

// RecordJoin opens a record unless one is already open for key.
func (l *Ledger) RecordJoin(ctx context.Context, key domain.ParticipationKey) {
	logger := keyLogger(key)
	created, err := l.store.OpenParticipation(ctx, key, l.now().UTC())
	if err != nil {
		logger.Error().Err(err).Msg("record join")
		return
	}
	logger.Info().Bool("created", created).Msg("join recorded")
}

// RecordLeave closes the open record for key; without one it does nothing.
func (l *Ledger) RecordLeave(ctx context.Context, key domain.ParticipationKey) {
	logger := keyLogger(key)
	closed, err := l.store.CloseParticipation(ctx, key, l.now().UTC())
	if err != nil {
		logger.Error().Err(err).Msg("record leave")
		return
	}
	logger.Info().Bool("closed", closed).Msg("leave recorded")
}

func (l *Ledger) Attendance(ctx context.Context, occurrence domain.OccurrenceID) ([]domain.Participation, error) {
	return l.store.ListParticipation(ctx, occurrence)
}

func keyLogger(key domain.ParticipationKey) zerolog.Logger {
	return log.With().
		Str("module", "app.ledger").
		Int64("occurrence", int64(key.OccurrenceID)).
		Str("room", string(key.Room)).
		Str("user", string(key.User)).
		Logger()
}
