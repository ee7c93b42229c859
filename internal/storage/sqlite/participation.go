package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dkeye/StudyRoom/internal/domain"
)

type ParticipationStore struct {
	db *sql.DB
}

func NewParticipationStore(db *sql.DB) *ParticipationStore { return &ParticipationStore{db: db} }

// OpenParticipation relies on the partial unique index over open records:
// a second open for the same key is a no-op.
func (s *ParticipationStore) OpenParticipation(ctx context.Context, key domain.ParticipationKey, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO participation (occurrence_id, room_key, user_id, joined_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		int64(key.OccurrenceID), string(key.Room), string(key.User), formatTime(at))
	if err != nil {
		return false, mapError(err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *ParticipationStore) CloseParticipation(ctx context.Context, key domain.ParticipationKey, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE participation SET left_at = ?
		 WHERE occurrence_id = ? AND room_key = ? AND user_id = ? AND left_at IS NULL`,
		formatTime(at), int64(key.OccurrenceID), string(key.Room), string(key.User))
	if err != nil {
		return false, mapError(err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *ParticipationStore) ListParticipation(ctx context.Context, occurrence domain.OccurrenceID) ([]domain.Participation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, occurrence_id, room_key, user_id, joined_at, left_at
		 FROM participation WHERE occurrence_id = ? ORDER BY joined_at, id`,
		int64(occurrence))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []domain.Participation
	for rows.Next() {
		var (
			p          domain.Participation
			occ        int64
			room, user string
			joined     string
			left       sql.NullString
		)
		if err := rows.Scan(&p.ID, &occ, &room, &user, &joined, &left); err != nil {
			return nil, fmt.Errorf("participation: %w", err)
		}
		p.Key = domain.ParticipationKey{OccurrenceID: domain.OccurrenceID(occ), Room: domain.RoomKey(room), User: domain.UserID(user)}
		if p.JoinedAt, err = parseTime(joined); err != nil {
			return nil, fmt.Errorf("participation %d joined_at: %w", p.ID, err)
		}
		if left.Valid {
			t, err := parseTime(left.String)
			if err != nil {
				return nil, fmt.Errorf("participation %d left_at: %w", p.ID, err)
			}
			p.LeftAt = &t
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
