// Package memory holds in-process implementations of the core stores.
package memory

import (
	"context"
	"sync"

	"github.com/dkeye/StudyRoom/internal/core"
	"github.com/dkeye/StudyRoom/internal/domain"
)

type Directory struct {
	mu    sync.RWMutex
	users map[domain.UserID]string
	rooms map[domain.RoomKey]domain.Room
}

func NewDirectory() *Directory {
	return &Directory{
		users: make(map[domain.UserID]string),
		rooms: make(map[domain.RoomKey]domain.Room),
	}
}

func (d *Directory) AddUser(id domain.UserID, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[id] = name
}

func (d *Directory) AddRoom(room domain.Room) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rooms[room.Key] = room
}

func (d *Directory) ResolveDisplayName(_ context.Context, user domain.UserID) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	name, ok := d.users[user]
	if !ok {
		return "", core.ErrNotFound
	}
	return name, nil
}

func (d *Directory) LookupRoom(_ context.Context, key domain.RoomKey) (domain.Room, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	room, ok := d.rooms[key]
	if !ok {
		return domain.Room{}, core.ErrNotFound
	}
	return room, nil
}
