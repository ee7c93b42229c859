package app

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dkeye/StudyRoom/internal/core"
	"github.com/dkeye/StudyRoom/internal/domain"
	"github.com/rs/zerolog/log"
)

const notifierShards = 32

type notifyEntry struct {
	ConnID core.ConnID
	Signal core.SignalConnection
}

type notifyShard struct {
	mu    sync.RWMutex
	users map[domain.UserID]notifyEntry
}

// TargetedNotifier keeps one delivery connection per user, independent of
// rooms. A newer connection replaces the older one.
type TargetedNotifier struct {
	shards [notifierShards]*notifyShard
	now    func() time.Time
}

func NewTargetedNotifier() *TargetedNotifier {
	n := &TargetedNotifier{now: time.Now}
	for i := range n.shards {
		n.shards[i] = &notifyShard{users: make(map[domain.UserID]notifyEntry)}
	}
	return n
}

func (n *TargetedNotifier) shardFor(user domain.UserID) *notifyShard {
	return n.shards[xxhash.Sum64String(string(user))%notifierShards]
}

// Register binds conn to user and returns the connection it replaced, if any.
// The caller owns closing the replaced connection.
func (n *TargetedNotifier) Register(user domain.UserID, sid core.ConnID, conn core.SignalConnection) (core.SignalConnection, bool) {
	s := n.shardFor(user)
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.users[user]
	s.users[user] = notifyEntry{ConnID: sid, Signal: conn}
	log.Info().Str("module", "app.notifier").Str("user", string(user)).Str("conn", string(sid)).Bool("replaced", had).Msg("bound notify channel")
	if had && prev.ConnID != sid {
		return prev.Signal, true
	}
	return nil, false
}

// Unregister removes the binding only if sid is still the current one, so a
// replaced connection closing late cannot evict its successor.
func (n *TargetedNotifier) Unregister(user domain.UserID, sid core.ConnID) bool {
	s := n.shardFor(user)
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.users[user]
	if !ok || cur.ConnID != sid {
		return false
	}
	delete(s.users, user)
	log.Info().Str("module", "app.notifier").Str("user", string(user)).Str("conn", string(sid)).Msg("unbind notify channel")
	return true
}

func (n *TargetedNotifier) Online(user domain.UserID) bool {
	s := n.shardFor(user)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[user]
	return ok
}

// CloseAll closes and forgets every bound connection.
func (n *TargetedNotifier) CloseAll() int {
	closed := 0
	for _, s := range n.shards {
		s.mu.Lock()
		for user, e := range s.users {
			e.Signal.Close()
			delete(s.users, user)
			closed++
		}
		s.mu.Unlock()
	}
	return closed
}

// Notify delivers payload to user if connected. Offline users are a silent
// no-op: nothing is queued or retried.
func (n *TargetedNotifier) Notify(user domain.UserID, payload json.RawMessage) bool {
	s := n.shardFor(user)
	s.mu.RLock()
	entry, ok := s.users[user]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	err := core.SendJSON(entry.Signal, core.NotificationEvent{
		Type:      core.EventNotification,
		Recipient: user,
		Payload:   payload,
		At:        n.now().UTC(),
	})
	if err != nil {
		log.Warn().Err(err).Str("module", "app.notifier").Str("user", string(user)).Msg("notify dropped")
		return false
	}
	return true
}
