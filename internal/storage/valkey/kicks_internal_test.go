package valkey

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKickKey(t *testing.T) {
	require.Equal(t, "kick:{R1}:bob:2026-10-19", kickKey("R1", "bob", "2026-10-19"))
}

func TestSecondsLeftInDay(t *testing.T) {
	req := require.New(t)
	req.Equal(int64(3600), secondsLeftInDay(time.Date(2026, 10, 19, 23, 0, 0, 0, time.UTC)))
	req.Equal(int64(86400), secondsLeftInDay(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)))
	req.Equal(int64(1), secondsLeftInDay(time.Date(2026, 10, 19, 23, 59, 59, 999, time.UTC)))
}
