package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiter_SlidingWindow(t *testing.T) {
	req := require.New(t)
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Second)
	rl.now = func() time.Time { return now }

	req.True(rl.Allow("alice"))
	req.True(rl.Allow("alice"))
	req.False(rl.Allow("alice"))
	req.True(rl.Allow("bob"))

	now = now.Add(1001 * time.Millisecond)
	req.True(rl.Allow("alice"))
}

func TestRateLimiter_ForgetResetsHistory(t *testing.T) {
	req := require.New(t)
	rl := NewRateLimiter(1, time.Hour)

	req.True(rl.Allow("alice"))
	req.False(rl.Allow("alice"))
	rl.Forget("alice")
	req.True(rl.Allow("alice"))
}

func TestRateLimiter_DisabledAndNil(t *testing.T) {
	req := require.New(t)
	var nilLimiter *RateLimiter
	req.True(nilLimiter.Allow("alice"))
	nilLimiter.Forget("alice")

	off := NewRateLimiter(0, time.Second)
	for range 10 {
		req.True(off.Allow("alice"))
	}
}
