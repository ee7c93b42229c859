package core

import (
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dkeye/StudyRoom/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const DefaultShards = 64

// roomSet is one room's session set. It is guarded by its shard's lock.
type roomSet struct {
	bySID   map[ConnID]*MemberSession
	version uint64
}

type shard struct {
	mu    sync.RWMutex
	rooms map[domain.RoomKey]*roomSet
}

// SessionRegistry is a threadsafe in-memory room -> sessions map.
// Rooms are spread over shards by key hash so unrelated rooms rarely share
// a lock. It never closes adapter-owned resources.
type SessionRegistry struct {
	shards []*shard
}

func NewSessionRegistry(shards int) *SessionRegistry {
	if shards <= 0 {
		shards = DefaultShards
	}
	r := &SessionRegistry{shards: make([]*shard, shards)}
	for i := range r.shards {
		r.shards[i] = &shard{rooms: make(map[domain.RoomKey]*roomSet)}
	}
	return r
}

func (r *SessionRegistry) shardFor(room domain.RoomKey) *shard {
	return r.shards[xxhash.Sum64String(string(room))%uint64(len(r.shards))]
}

// Register adds ms to room. Registering the same connection twice overwrites.
func (r *SessionRegistry) Register(room domain.RoomKey, ms *MemberSession) {
	s := r.shardFor(room)
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.rooms[room]
	if !ok {
		set = &roomSet{bySID: make(map[ConnID]*MemberSession)}
		s.rooms[room] = set
	}
	set.bySID[ms.ID] = ms
	set.version++
	log.Info().Str("module", "core.registry").Str("room", string(room)).Str("conn", string(ms.ID)).Str("user", string(ms.UserID())).Msg("member added")
}

// Unregister removes the connection and prunes the room once empty.
// Pruning happens under the same shard lock Register takes, so a concurrent
// Register either lands before the prune check or recreates the set.
func (r *SessionRegistry) Unregister(room domain.RoomKey, sid ConnID) bool {
	s := r.shardFor(room)
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.rooms[room]
	if !ok {
		return false
	}
	if _, ok := set.bySID[sid]; !ok {
		return false
	}
	delete(set.bySID, sid)
	set.version++
	if len(set.bySID) == 0 {
		delete(s.rooms, room)
	}
	log.Info().Str("module", "core.registry").Str("room", string(room)).Str("conn", string(sid)).Msg("member removed")
	return true
}

// UpdateFlags applies delta to one session in place. It does not announce.
func (r *SessionRegistry) UpdateFlags(room domain.RoomKey, sid ConnID, delta domain.FlagsDelta) bool {
	s := r.shardFor(room)
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.rooms[room]
	if !ok {
		return false
	}
	ms, ok := set.bySID[sid]
	if !ok {
		return false
	}
	meta := ms.meta
	meta.Flags = meta.Flags.Apply(delta)
	set.version++
	return true
}

// Snapshot copies the room's members and session handles. Members are sorted
// by user id then connection id so serialization is stable.
func (r *SessionRegistry) Snapshot(room domain.RoomKey) RoomSnapshot {
	s := r.shardFor(room)
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := RoomSnapshot{Room: room}
	set, ok := s.rooms[room]
	if !ok {
		snap.Members = []MemberDTO{}
		return snap
	}
	snap.Version = set.version
	snap.Sessions = lo.Values(set.bySID)
	sort.Slice(snap.Sessions, func(i, j int) bool {
		a, b := snap.Sessions[i], snap.Sessions[j]
		if a.UserID() != b.UserID() {
			return a.UserID() < b.UserID()
		}
		return a.ID < b.ID
	})
	snap.Members = lo.Map(snap.Sessions, func(ms *MemberSession, _ int) MemberDTO {
		return ms.dto()
	})
	return snap
}

// Sessions returns a copy of the room's session handles for fan-out.
func (r *SessionRegistry) Sessions(room domain.RoomKey) []*MemberSession {
	s := r.shardFor(room)
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.rooms[room]
	if !ok {
		return nil
	}
	return lo.Values(set.bySID)
}

func (r *SessionRegistry) SessionsOfUser(room domain.RoomKey, user domain.UserID) []*MemberSession {
	return lo.Filter(r.Sessions(room), func(ms *MemberSession, _ int) bool {
		return ms.UserID() == user
	})
}

// UserConnCount counts the user's open connections in room attributed to occurrence.
func (r *SessionRegistry) UserConnCount(room domain.RoomKey, user domain.UserID, occurrence domain.OccurrenceID) int {
	return lo.CountBy(r.Sessions(room), func(ms *MemberSession) bool {
		return ms.UserID() == user && ms.Occurrence == occurrence
	})
}

func (r *SessionRegistry) Count(room domain.RoomKey) int {
	s := r.shardFor(room)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if set, ok := s.rooms[room]; ok {
		return len(set.bySID)
	}
	return 0
}

func (r *SessionRegistry) Rooms() []RoomInfo {
	out := make([]RoomInfo, 0)
	for _, s := range r.shards {
		s.mu.RLock()
		for key, set := range s.rooms {
			out = append(out, RoomInfo{Key: key, MemberCount: len(set.bySID)})
		}
		s.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
