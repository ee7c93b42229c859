package memory

import (
	"context"
	"sync"

	"github.com/dkeye/StudyRoom/internal/domain"
)

type kickKey struct {
	room domain.RoomKey
	user domain.UserID
	day  domain.Day
}

// KickStore keeps markers by the calendar day of the kick in the marker's
// own location.
type KickStore struct {
	mu      sync.RWMutex
	markers map[kickKey]domain.KickMarker
}

func NewKickStore() *KickStore {
	return &KickStore{markers: make(map[kickKey]domain.KickMarker)}
}

func (s *KickStore) MarkKicked(_ context.Context, m domain.KickMarker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers[kickKey{room: m.Room, user: m.User, day: domain.DayOf(m.At)}] = m
	return nil
}

func (s *KickStore) IsKicked(_ context.Context, room domain.RoomKey, user domain.UserID, on domain.Day) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.markers[kickKey{room: room, user: user, day: on}]
	return ok, nil
}
