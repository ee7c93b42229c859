package orch

import (
	"sync"

	"github.com/dkeye/StudyRoom/internal/domain"
)

type gateKey struct {
	room domain.RoomKey
	user domain.UserID
}

type gateEntry struct {
	mu   sync.Mutex
	refs int
}

// keyedGates hands out one mutex per (room, user). Entries live only while
// someone holds or waits on them, so unrelated pairs never share a lock.
type keyedGates struct {
	mu      sync.Mutex
	entries map[gateKey]*gateEntry
}

func (g *keyedGates) lock(room domain.RoomKey, user domain.UserID) func() {
	k := gateKey{room: room, user: user}
	g.mu.Lock()
	if g.entries == nil {
		g.entries = make(map[gateKey]*gateEntry)
	}
	e, ok := g.entries[k]
	if !ok {
		e = &gateEntry{}
		g.entries[k] = e
	}
	e.refs++
	g.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		g.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(g.entries, k)
		}
		g.mu.Unlock()
	}
}

func (g *keyedGates) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}
