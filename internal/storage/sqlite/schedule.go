package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dkeye/StudyRoom/internal/domain"
)

const occurrenceColumns = `id, subject_id, round, day, start_time, end_time, auto`

type ScheduleStore struct {
	db *sql.DB
}

func NewScheduleStore(db *sql.DB) *ScheduleStore { return &ScheduleStore{db: db} }

// AddOccurrence stores an administrator-defined round. Round 0 means next.
func (s *ScheduleStore) AddOccurrence(ctx context.Context, o domain.Occurrence) (domain.Occurrence, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO occurrences (subject_id, round, day, start_time, end_time, auto)
		 SELECT ?1, CASE WHEN ?2 > 0 THEN ?2 ELSE COALESCE(MAX(round), 0) + 1 END, ?3, ?4, ?5, ?6
		 FROM occurrences WHERE subject_id = ?1
		 RETURNING `+occurrenceColumns,
		string(o.SubjectID), o.Round, string(o.Date), o.Start, o.End, o.Auto)
	return scanOccurrence(row)
}

func (s *ScheduleStore) LookupOccurrence(ctx context.Context, _ domain.SubjectID, id domain.OccurrenceID) (domain.Occurrence, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+occurrenceColumns+` FROM occurrences WHERE id = ?`, int64(id))
	return scanOccurrence(row)
}

// FindActiveOccurrence picks the most recently started round whose window
// contains now. Windows compare lexically as "HH:MM".
func (s *ScheduleStore) FindActiveOccurrence(ctx context.Context, subject domain.SubjectID, now time.Time) (domain.Occurrence, error) {
	clock := now.Format(domain.TimeOfDayLayout)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+occurrenceColumns+` FROM occurrences
		 WHERE subject_id = ? AND day = ?
		   AND start_time <> '' AND end_time <> ''
		   AND start_time <= ? AND ? < end_time
		 ORDER BY start_time DESC, round DESC
		 LIMIT 1`,
		string(subject), string(domain.DayOf(now)), clock, clock)
	return scanOccurrence(row)
}

func (s *ScheduleStore) ListOccurrencesOn(ctx context.Context, subject domain.SubjectID, day domain.Day) ([]domain.Occurrence, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+occurrenceColumns+` FROM occurrences WHERE subject_id = ? AND day = ? ORDER BY round`,
		string(subject), string(day))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []domain.Occurrence
	for rows.Next() {
		o, err := scanOccurrence(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CreateOccurrence numbers the round in the same statement that inserts it;
// the partial unique index on auto rounds turns a lost race into ErrConflict.
func (s *ScheduleStore) CreateOccurrence(ctx context.Context, subject domain.SubjectID, day domain.Day) (domain.Occurrence, error) {
	return s.AddOccurrence(ctx, domain.Occurrence{SubjectID: subject, Date: day, Auto: true})
}

// Count is the number of stored rounds for subject.
func (s *ScheduleStore) Count(ctx context.Context, subject domain.SubjectID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM occurrences WHERE subject_id = ?`, string(subject)).Scan(&n)
	return n, mapError(err)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOccurrence(sc scanner) (domain.Occurrence, error) {
	var (
		o       domain.Occurrence
		id      int64
		subject string
		day     string
	)
	if err := sc.Scan(&id, &subject, &o.Round, &day, &o.Start, &o.End, &o.Auto); err != nil {
		return domain.Occurrence{}, fmt.Errorf("occurrence: %w", mapError(err))
	}
	o.ID = domain.OccurrenceID(id)
	o.SubjectID = domain.SubjectID(subject)
	o.Date = domain.Day(day)
	return o, nil
}
