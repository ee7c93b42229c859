package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dkeye/StudyRoom/internal/domain"
)

type ParticipationStore struct {
	mu      sync.Mutex
	records []domain.Participation
	nextID  int64
}

func NewParticipationStore() *ParticipationStore {
	return &ParticipationStore{nextID: 1}
}

func (s *ParticipationStore) OpenParticipation(_ context.Context, key domain.ParticipationKey, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openIndexLocked(key) >= 0 {
		return false, nil
	}
	s.records = append(s.records, domain.Participation{ID: s.nextID, Key: key, JoinedAt: at})
	s.nextID++
	return true, nil
}

func (s *ParticipationStore) CloseParticipation(_ context.Context, key domain.ParticipationKey, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.openIndexLocked(key)
	if i < 0 {
		return false, nil
	}
	left := at
	s.records[i].LeftAt = &left
	return true, nil
}

func (s *ParticipationStore) ListParticipation(_ context.Context, occurrence domain.OccurrenceID) ([]domain.Participation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Participation
	for _, p := range s.records {
		if p.Key.OccurrenceID == occurrence {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

// openIndexLocked returns the most recent open record for key, or -1.
func (s *ParticipationStore) openIndexLocked(key domain.ParticipationKey) int {
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].Key == key && s.records[i].Open() {
			return i
		}
	}
	return -1
}
