package domain

import "time"

const (
	DayLayout       = "2006-01-02"
	TimeOfDayLayout = "15:04"
)

type OccurrenceID int64

// Day is a calendar date in DayLayout.
type Day string

// DayOf returns the calendar date of t in t's own location.
func DayOf(t time.Time) Day { return Day(t.Format(DayLayout)) }

// Next returns the following calendar date.
func (d Day) Next() Day {
	t, err := time.Parse(DayLayout, string(d))
	if err != nil {
		return d
	}
	return DayOf(t.AddDate(0, 0, 1))
}

// Occurrence is one dated round of a subject's recurring session.
// Start and End are "HH:MM" and may be empty when the round has no window.
type Occurrence struct {
	ID        OccurrenceID `json:"id"`
	SubjectID SubjectID    `json:"subject_id"`
	Round     int          `json:"round"`
	Date      Day          `json:"date"`
	Start     string       `json:"start,omitempty"`
	End       string       `json:"end,omitempty"`
	// Auto marks rounds created on demand by a join.
	Auto bool `json:"auto"`
}

func (o Occurrence) HasWindow() bool { return o.Start != "" && o.End != "" }

// ActiveAt reports whether now falls within [Start, End) on the occurrence date.
func (o Occurrence) ActiveAt(now time.Time) bool {
	if !o.HasWindow() || o.Date != DayOf(now) {
		return false
	}
	clock := now.Format(TimeOfDayLayout)
	return o.Start <= clock && clock < o.End
}
