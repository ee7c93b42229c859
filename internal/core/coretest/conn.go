// Package coretest holds transport doubles shared by package tests.
package coretest

import (
	"encoding/json"
	"sync"

	"github.com/dkeye/StudyRoom/internal/core"
)

// Conn records every frame sent to it. Capacity < 0 means unbounded.
type Conn struct {
	mu       sync.Mutex
	frames   []core.Frame
	closed   bool
	capacity int
}

func NewConn() *Conn { return &Conn{capacity: -1} }

// NewSlowConn accepts capacity frames and then reports backpressure.
func NewSlowConn(capacity int) *Conn { return &Conn{capacity: capacity} }

func (c *Conn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrClosed
	}
	if c.capacity >= 0 && len(c.frames) >= c.capacity {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *Conn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn) Frames() []core.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Frame(nil), c.frames...)
}

// Events decodes recorded frames whose type matches t into out values.
func Events[T any](c *Conn, t core.EventType) []T {
	var out []T
	for _, f := range c.Frames() {
		var env core.Envelope
		if err := json.Unmarshal(f, &env); err != nil || env.Type != t {
			continue
		}
		var v T
		if err := json.Unmarshal(f, &v); err == nil {
			out = append(out, v)
		}
	}
	return out
}

// Last returns the most recent event of type t, if any.
func Last[T any](c *Conn, t core.EventType) (T, bool) {
	evs := Events[T](c, t)
	if len(evs) == 0 {
		var zero T
		return zero, false
	}
	return evs[len(evs)-1], true
}
