// Package valkey shares kick markers across server instances.
package valkey

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/StudyRoom/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/valkey-io/valkey-go"
)

func Open(addr, password string) (valkey.Client, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
		Password:    password,
	})
	if err != nil {
		return nil, fmt.Errorf("connect valkey %s: %w", addr, err)
	}
	log.Info().Str("module", "storage.valkey").Str("addr", addr).Msg("connected")
	return client, nil
}

// KickStore keeps one key per (room, user, day). Keys expire when the day
// of the kick ends, so nothing needs sweeping.
type KickStore struct {
	client valkey.Client
}

func NewKickStore(client valkey.Client) *KickStore {
	return &KickStore{client: client}
}

func kickKey(room domain.RoomKey, user domain.UserID, day domain.Day) string {
	return fmt.Sprintf("kick:{%s}:%s:%s", room, user, day)
}

// secondsLeftInDay is the TTL of a marker set at t, at least one second.
func secondsLeftInDay(t time.Time) int64 {
	y, m, d := t.Date()
	end := time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
	secs := int64(end.Sub(t).Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}

func (s *KickStore) MarkKicked(ctx context.Context, m domain.KickMarker) error {
	key := kickKey(m.Room, m.User, domain.DayOf(m.At))
	ttl := secondsLeftInDay(m.At)
	cmd := s.client.B().Set().Key(key).Value(m.At.UTC().Format(time.RFC3339)).ExSeconds(ttl).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("valkey set %s: %w", key, err)
	}
	return nil
}

func (s *KickStore) IsKicked(ctx context.Context, room domain.RoomKey, user domain.UserID, on domain.Day) (bool, error) {
	key := kickKey(room, user, on)
	n, err := s.client.Do(ctx, s.client.B().Exists().Key(key).Build()).AsInt64()
	if err != nil {
		return false, fmt.Errorf("valkey exists %s: %w", key, err)
	}
	return n > 0, nil
}
