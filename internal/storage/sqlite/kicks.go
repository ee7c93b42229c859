package sqlite

import (
	"context"
	"database/sql"

	"github.com/dkeye/StudyRoom/internal/domain"
)

// KickStore keys markers by the calendar day of the kick in the marker's
// own location.
type KickStore struct {
	db *sql.DB
}

func NewKickStore(db *sql.DB) *KickStore { return &KickStore{db: db} }

func (s *KickStore) MarkKicked(ctx context.Context, m domain.KickMarker) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kicks (room_key, user_id, day, kicked_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (room_key, user_id, day) DO UPDATE SET kicked_at = excluded.kicked_at`,
		string(m.Room), string(m.User), string(domain.DayOf(m.At)), formatTime(m.At))
	return mapError(err)
}

func (s *KickStore) IsKicked(ctx context.Context, room domain.RoomKey, user domain.UserID, on domain.Day) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM kicks WHERE room_key = ? AND user_id = ? AND day = ?`,
		string(room), string(user), string(on)).Scan(&n)
	if err != nil {
		return false, mapError(err)
	}
	return n > 0, nil
}
