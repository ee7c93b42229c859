// Package schedule attributes room joins to a concrete occurrence (round).
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/StudyRoom/internal/core"
	"github.com/dkeye/StudyRoom/internal/domain"
	"github.com/rs/zerolog/log"
)

// Resolver picks the occurrence a join belongs to:
//  1. a client-supplied occurrence, if it belongs to the subject;
//  2. the subject's occurrence active right now;
//  3. today's occurrence, created on demand.
type Resolver struct {
	store core.ScheduleStore
	loc   *time.Location
	now   func() time.Time
}

func NewResolver(store core.ScheduleStore, loc *time.Location, now func() time.Time) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Resolver{store: store, loc: loc, now: now}
}

// Now is the resolver clock in the schedule's timezone.
func (r *Resolver) Now() time.Time { return r.now().In(r.loc) }

// Today is the current calendar date in the schedule's timezone.
func (r *Resolver) Today() domain.Day { return domain.DayOf(r.Now()) }

func (r *Resolver) ResolveOccurrence(ctx context.Context, subject domain.SubjectID, room domain.RoomKey, supplied *domain.OccurrenceID) (domain.Occurrence, error) {
	logger := log.With().Str("module", "app.schedule").Str("subject", string(subject)).Str("room", string(room)).Logger()
	now := r.Now()

	if supplied != nil {
		occ, err := r.store.LookupOccurrence(ctx, subject, *supplied)
		switch {
		case err == nil && occ.SubjectID == subject:
			return occ, nil
		case err == nil, errors.Is(err, core.ErrNotFound):
			logger.Info().Int64("supplied", int64(*supplied)).Msg("discarding supplied occurrence")
		default:
			return domain.Occurrence{}, fmt.Errorf("%w: lookup occurrence: %v", core.ErrScheduleUnresolved, err)
		}
	}

	occ, err := r.store.FindActiveOccurrence(ctx, subject, now)
	if err == nil {
		return occ, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return domain.Occurrence{}, fmt.Errorf("%w: find active occurrence: %v", core.ErrScheduleUnresolved, err)
	}

	occ, err = r.today(ctx, subject, now)
	if err != nil {
		return domain.Occurrence{}, err
	}
	logger.Info().Int64("occurrence", int64(occ.ID)).Int("round", occ.Round).Msg("resolved to today's occurrence")
	return occ, nil
}

// today returns an existing occurrence for today or creates the next round.
// A losing concurrent creator gets ErrConflict and re-reads the winner's row.
func (r *Resolver) today(ctx context.Context, subject domain.SubjectID, now time.Time) (domain.Occurrence, error) {
	day := domain.DayOf(now)
	if occ, ok, err := r.pickToday(ctx, subject, day, now); err != nil || ok {
		return occ, err
	}

	occ, err := r.store.CreateOccurrence(ctx, subject, day)
	if err == nil {
		log.Info().Str("module", "app.schedule").Str("subject", string(subject)).Int("round", occ.Round).Str("date", string(day)).Msg("created occurrence")
		return occ, nil
	}
	if !errors.Is(err, core.ErrConflict) {
		return domain.Occurrence{}, fmt.Errorf("%w: create occurrence: %v", core.ErrScheduleUnresolved, err)
	}
	occ, ok, err := r.pickToday(ctx, subject, day, now)
	if err != nil {
		return domain.Occurrence{}, err
	}
	if !ok {
		return domain.Occurrence{}, fmt.Errorf("%w: occurrence for %s vanished after conflict", core.ErrScheduleUnresolved, day)
	}
	return occ, nil
}

// pickToday prefers the latest round that already started, then the earliest
// upcoming one, then rounds without a window.
func (r *Resolver) pickToday(ctx context.Context, subject domain.SubjectID, day domain.Day, now time.Time) (domain.Occurrence, bool, error) {
	list, err := r.store.ListOccurrencesOn(ctx, subject, day)
	if err != nil {
		return domain.Occurrence{}, false, fmt.Errorf("%w: list occurrences: %v", core.ErrScheduleUnresolved, err)
	}
	if len(list) == 0 {
		return domain.Occurrence{}, false, nil
	}
	clock := now.Format(domain.TimeOfDayLayout)
	var started, upcoming, windowless *domain.Occurrence
	for i := range list {
		o := &list[i]
		switch {
		case !o.HasWindow():
			if windowless == nil {
				windowless = o
			}
		case o.Start <= clock:
			if started == nil || o.Start >= started.Start {
				started = o
			}
		default:
			if upcoming == nil || o.Start < upcoming.Start {
				upcoming = o
			}
		}
	}
	for _, o := range []*domain.Occurrence{started, upcoming, windowless} {
		if o != nil {
			return *o, true, nil
		}
	}
	return domain.Occurrence{}, false, nil
}
