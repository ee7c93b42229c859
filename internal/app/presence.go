package app

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dkeye/StudyRoom/internal/core"
	"github.com/dkeye/StudyRoom/internal/domain"
	"github.com/rs/zerolog/log"
)

const announceGates = 64

// PresenceBroadcaster pushes member lists and room-wide frames. It reads the
// registry but never mutates it; closed peers are left to their own
// disconnect path.
type PresenceBroadcaster struct {
	sessions *core.SessionRegistry
	policy   Policy
	// gates serialize snapshot+enqueue per room so a newer member list is
	// never followed by an older one on the same connection.
	gates [announceGates]sync.Mutex
}

func NewPresenceBroadcaster(sessions *core.SessionRegistry, policy Policy) *PresenceBroadcaster {
	if policy == nil {
		policy = SimplePolicy{Action: DropFrame}
	}
	return &PresenceBroadcaster{sessions: sessions, policy: policy}
}

func (b *PresenceBroadcaster) gate(room domain.RoomKey) *sync.Mutex {
	return &b.gates[xxhash.Sum64String(string(room))%announceGates]
}

// Announce sends the current member list to every open connection in room.
func (b *PresenceBroadcaster) Announce(room domain.RoomKey) core.PublishResult {
	g := b.gate(room)
	g.Lock()
	defer g.Unlock()

	snap := b.sessions.Snapshot(room)
	if len(snap.Sessions) == 0 {
		return core.PublishResult{}
	}
	frame, err := json.Marshal(core.MemberListEvent{
		Type:    core.EventMemberList,
		Room:    room,
		Version: snap.Version,
		Count:   len(snap.Members),
		Members: snap.Members,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "app.presence").Str("room", string(room)).Msg("member list marshal")
		return core.PublishResult{}
	}
	res := b.deliver(room, snap.Sessions, frame)
	log.Debug().Str("module", "app.presence").Str("room", string(room)).Uint64("version", snap.Version).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("announce")
	return res
}

// Fanout sends frame to every connection currently in room, sender included.
func (b *PresenceBroadcaster) Fanout(room domain.RoomKey, frame core.Frame) core.PublishResult {
	return b.deliver(room, b.sessions.Sessions(room), frame)
}

func (b *PresenceBroadcaster) deliver(room domain.RoomKey, targets []*core.MemberSession, frame core.Frame) core.PublishResult {
	res := core.PublishResult{}
	for _, ms := range targets {
		err := ms.Signal().TrySend(frame)
		switch {
		case err == nil:
			res.SendTo++
		case errors.Is(err, core.ErrClosed):
			res.Skipped++
		default:
			res.Dropped = append(res.Dropped, ms)
			if b.policy.OnBackPressure(room, ms) == CloseSlow {
				log.Warn().Str("module", "app.presence").Str("room", string(room)).Str("conn", string(ms.ID)).Msg("closing slow connection")
				ms.Signal().Close()
			}
		}
	}
	return res
}
