package birthday

import (
	"errors"
	"sort"
	"time"
)

// MaxWindowDays is the largest supported lookahead window.
const MaxWindowDays = 365

// ErrInvalidRange is returned when a lookahead window is outside the
// supported range.
var ErrInvalidRange = errors.New("window must be between 0 and 365 days")

// Record is one member's stored birthday. Year is nil when the member
// didn't share their birth year.
type Record struct {
	UserID string
	Month  int
	Day    int
	Year   *int
}

// Due is one member's upcoming birthday occurrence.
type Due struct {
	UserID    string
	DaysUntil int
	// Occurrence is the UTC date the birthday falls on.
	Occurrence time.Time
	// NewAge is the age the member turns on the occurrence, nil when
	// the birth year is unknown.
	NewAge *int
}

// Valid reports whether the record holds a plausible calendar date.
// Feb 29 is accepted; see DueWithin for how it recurs.
func (r Record) Valid() bool {
	if r.Month < 1 || r.Month > 12 {
		return false
	}
	if r.Day < 1 || r.Day > daysInMonth(time.Month(r.Month)) {
		return false
	}
	return true
}

func daysInMonth(m time.Month) int {
	switch m {
	case time.April, time.June, time.September, time.November:
		return 30
	case time.February:
		return 29
	default:
		return 31
	}
}

// Midnight truncates t to UTC midnight.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DueWithin returns the records whose next birthday occurrence falls
// within windowDays of today, sorted by days until the occurrence.
// Records sharing a day keep their input order. Malformed records are
// skipped, never causing an error.
//
// A Feb 29 birthday is observed on Mar 1 in non-leap years, so every
// record occurs exactly once per year.
func DueWithin(records []Record, today time.Time, windowDays int) ([]Due, error) {
	if windowDays < 0 || windowDays > MaxWindowDays {
		return nil, ErrInvalidRange
	}

	today = Midnight(today)

	var due []Due
	for _, record := range records {
		if !record.Valid() {
			continue
		}

		occurrence := nextOccurrence(record, today)
		daysUntil := int(occurrence.Sub(today).Hours() / 24)
		if daysUntil > windowDays {
			continue
		}

		var newAge *int
		if record.Year != nil {
			age := occurrence.Year() - *record.Year
			newAge = &age
		}

		due = append(due, Due{
			UserID:     record.UserID,
			DaysUntil:  daysUntil,
			Occurrence: occurrence,
			NewAge:     newAge,
		})
	}

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].DaysUntil < due[j].DaysUntil
	})
	return due, nil
}

// TodayExact returns the IDs of every member whose birthday occurrence
// is today. It is DueWithin with a zero-day window.
func TodayExact(records []Record, today time.Time) []string {
	due, err := DueWithin(records, today, 0)
	if err != nil {
		return nil
	}

	ids := make([]string, 0, len(due))
	for _, d := range due {
		ids = append(ids, d.UserID)
	}
	return ids
}

func nextOccurrence(record Record, today time.Time) time.Time {
	if int(today.Month()) == record.Month && today.Day() == record.Day {
		return today
	}

	// time.Date normalises Feb 29 to Mar 1 in non-leap years.
	thisYear := time.Date(
		today.Year(),
		time.Month(record.Month),
		record.Day,
		0, 0, 0, 0,
		time.UTC,
	)
	if !thisYear.Before(today) {
		return thisYear
	}

	return time.Date(
		today.Year()+1,
		time.Month(record.Month),
		record.Day,
		0, 0, 0, 0,
		time.UTC,
	)
}
