package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dkeye/StudyRoom/internal/core"
	"github.com/dkeye/StudyRoom/internal/domain"
	"github.com/samber/lo"
)

// ScheduleStore mirrors the sqlite constraints: unique (subject, round) and
// at most one auto round per (subject, day).
type ScheduleStore struct {
	mu     sync.RWMutex
	byID   map[domain.OccurrenceID]domain.Occurrence
	nextID domain.OccurrenceID
}

func NewScheduleStore() *ScheduleStore {
	return &ScheduleStore{byID: make(map[domain.OccurrenceID]domain.Occurrence), nextID: 1}
}

// AddOccurrence stores an administrator-defined round. Round 0 means next.
func (s *ScheduleStore) AddOccurrence(o domain.Occurrence) (domain.Occurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.Round == 0 {
		o.Round = s.maxRoundLocked(o.SubjectID) + 1
	}
	for _, cur := range s.byID {
		if cur.SubjectID == o.SubjectID && cur.Round == o.Round {
			return domain.Occurrence{}, core.ErrConflict
		}
	}
	o.ID = s.nextID
	s.nextID++
	s.byID[o.ID] = o
	return o, nil
}

func (s *ScheduleStore) LookupOccurrence(_ context.Context, _ domain.SubjectID, id domain.OccurrenceID) (domain.Occurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.byID[id]
	if !ok {
		return domain.Occurrence{}, core.ErrNotFound
	}
	return o, nil
}

func (s *ScheduleStore) FindActiveOccurrence(_ context.Context, subject domain.SubjectID, now time.Time) (domain.Occurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	active := lo.Filter(lo.Values(s.byID), func(o domain.Occurrence, _ int) bool {
		return o.SubjectID == subject && o.ActiveAt(now)
	})
	if len(active) == 0 {
		return domain.Occurrence{}, core.ErrNotFound
	}
	// Overlapping windows: the most recently started wins.
	sort.Slice(active, func(i, j int) bool {
		if active[i].Start != active[j].Start {
			return active[i].Start > active[j].Start
		}
		return active[i].Round > active[j].Round
	})
	return active[0], nil
}

func (s *ScheduleStore) ListOccurrencesOn(_ context.Context, subject domain.SubjectID, day domain.Day) ([]domain.Occurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := lo.Filter(lo.Values(s.byID), func(o domain.Occurrence, _ int) bool {
		return o.SubjectID == subject && o.Date == day
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Round < out[j].Round })
	return out, nil
}

func (s *ScheduleStore) CreateOccurrence(_ context.Context, subject domain.SubjectID, day domain.Day) (domain.Occurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.byID {
		if cur.SubjectID == subject && cur.Date == day && cur.Auto {
			return domain.Occurrence{}, core.ErrConflict
		}
	}
	o := domain.Occurrence{
		ID:        s.nextID,
		SubjectID: subject,
		Round:     s.maxRoundLocked(subject) + 1,
		Date:      day,
		Auto:      true,
	}
	s.nextID++
	s.byID[o.ID] = o
	return o, nil
}

// Count is the number of stored rounds for subject.
func (s *ScheduleStore) Count(subject domain.SubjectID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.CountBy(lo.Values(s.byID), func(o domain.Occurrence) bool { return o.SubjectID == subject })
}

func (s *ScheduleStore) maxRoundLocked(subject domain.SubjectID) int {
	top := 0
	for _, o := range s.byID {
		if o.SubjectID == subject && o.Round > top {
			top = o.Round
		}
	}
	return top
}
