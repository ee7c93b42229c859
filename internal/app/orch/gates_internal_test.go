package orch

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeyedGates_SerializeOneKeyOnly(t *testing.T) {
	req := require.New(t)
	var g keyedGates

	unlock := g.lock("R1", "alice")

	// an unrelated pair is not blocked by the held gate
	done := make(chan struct{})
	go func() {
		g.lock("R1", "bob")()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unrelated key was blocked")
	}

	entered := make(chan struct{})
	go func() {
		g.lock("R1", "alice")()
		close(entered)
	}()
	select {
	case <-entered:
		t.Fatal("same key entered while held")
	case <-time.After(50 * time.Millisecond):
	}
	unlock()
	<-entered

	req.Zero(g.size())
}

func TestKeyedGates_Counter(t *testing.T) {
	var g keyedGates
	counter := 0
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := g.lock("R1", "alice")
			counter++
			unlock()
		}()
	}
	wg.Wait()
	require.Equal(t, 50, counter)
	require.Zero(t, g.size())
}
