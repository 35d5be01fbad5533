package birthday

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func intPtr(n int) *int {
	return &n
}

func TestDueWithinWindowBounds(t *testing.T) {
	records := []Record{{UserID: "1", Month: 6, Day: 15}}

	for _, window := range []int{-1, 366, 1000} {
		_, err := DueWithin(records, date(2024, time.June, 1), window)
		if !errors.Is(err, ErrInvalidRange) {
			t.Errorf("window %v: got %v, want ErrInvalidRange", window, err)
		}
	}

	for _, window := range []int{0, 1, 365} {
		if _, err := DueWithin(records, date(2024, time.June, 1), window); err != nil {
			t.Errorf("window %v: unexpected error %v", window, err)
		}
	}
}

func TestDueWithinToday(t *testing.T) {
	records := []Record{
		{UserID: "today", Month: 6, Day: 15, Year: intPtr(2000)},
		{UserID: "tomorrow", Month: 6, Day: 16},
	}

	due, err := DueWithin(records, date(2024, time.June, 15), 0)
	if err != nil {
		t.Fatal(err)
	}

	if len(due) != 1 {
		t.Fatalf("got %d due, want 1", len(due))
	}
	if due[0].UserID != "today" || due[0].DaysUntil != 0 {
		t.Errorf("got %+v, want today with 0 days", due[0])
	}
	if due[0].NewAge == nil || *due[0].NewAge != 24 {
		t.Errorf("got age %v, want 24", due[0].NewAge)
	}
}

func TestDueWithinBoundsAndUniqueness(t *testing.T) {
	records := []Record{
		{UserID: "a", Month: 1, Day: 1},
		{UserID: "b", Month: 3, Day: 10},
		{UserID: "c", Month: 7, Day: 4, Year: intPtr(1990)},
		{UserID: "d", Month: 12, Day: 25},
	}

	const window = 60
	due, err := DueWithin(records, date(2023, time.December, 1), window)
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[string]bool)
	for _, d := range due {
		if d.DaysUntil < 0 || d.DaysUntil > window {
			t.Errorf("%v: days until %v outside [0, %v]", d.UserID, d.DaysUntil, window)
		}
		if seen[d.UserID] {
			t.Errorf("%v appears twice", d.UserID)
		}
		seen[d.UserID] = true
	}
}

func TestDueWithinYearWrap(t *testing.T) {
	records := []Record{{UserID: "1", Month: 1, Day: 2, Year: intPtr(2000)}}

	due, err := DueWithin(records, date(2024, time.December, 30), 7)
	if err != nil {
		t.Fatal(err)
	}

	if len(due) != 1 {
		t.Fatalf("got %d due, want 1", len(due))
	}
	if due[0].DaysUntil != 3 {
		t.Errorf("got %v days, want 3", due[0].DaysUntil)
	}
	// The occurrence is in 2025, so the age comes from 2025.
	if due[0].NewAge == nil || *due[0].NewAge != 25 {
		t.Errorf("got age %v, want 25", due[0].NewAge)
	}
}

func TestDueWithinNewYearsEve(t *testing.T) {
	records := []Record{{UserID: "1", Month: 12, Day: 31}}

	due, err := DueWithin(records, date(2024, time.December, 30), 7)
	if err != nil {
		t.Fatal(err)
	}

	if len(due) != 1 {
		t.Fatalf("got %d due, want 1", len(due))
	}
	if due[0].DaysUntil != 1 {
		t.Errorf("got %v days, want 1", due[0].DaysUntil)
	}
	if due[0].NewAge != nil {
		t.Errorf("got age %v, want none", *due[0].NewAge)
	}
}

func TestDueWithinLeapDay(t *testing.T) {
	records := []Record{{UserID: "1", Month: 2, Day: 29, Year: intPtr(2000)}}

	due, err := DueWithin(records, date(2024, time.February, 29), 0)
	if err != nil {
		t.Fatal(err)
	}

	if len(due) != 1 {
		t.Fatalf("got %d due, want 1", len(due))
	}
	if due[0].DaysUntil != 0 {
		t.Errorf("got %v days, want 0", due[0].DaysUntil)
	}
	if due[0].NewAge == nil || *due[0].NewAge != 24 {
		t.Errorf("got age %v, want 24", due[0].NewAge)
	}
}

func TestDueWithinLeapDayNonLeapYear(t *testing.T) {
	// Feb 29 birthdays are observed on Mar 1 in non-leap years.
	records := []Record{{UserID: "1", Month: 2, Day: 29}}

	due, err := DueWithin(records, date(2023, time.February, 28), 7)
	if err != nil {
		t.Fatal(err)
	}

	if len(due) != 1 {
		t.Fatalf("got %d due, want 1", len(due))
	}
	if due[0].DaysUntil != 1 {
		t.Errorf("got %v days, want 1", due[0].DaysUntil)
	}
	if got, want := due[0].Occurrence, date(2023, time.March, 1); !got.Equal(want) {
		t.Errorf("got occurrence %v, want %v", got, want)
	}

	due, err = DueWithin(records, date(2023, time.March, 1), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 || due[0].DaysUntil != 0 {
		t.Errorf("expected the observed birthday to be due on Mar 1, got %+v", due)
	}
}

func TestDueWithinOrdering(t *testing.T) {
	records := []Record{
		{UserID: "later", Month: 6, Day: 20},
		{UserID: "first-tie", Month: 6, Day: 17},
		{UserID: "second-tie", Month: 6, Day: 17},
		{UserID: "soonest", Month: 6, Day: 15},
	}

	due, err := DueWithin(records, date(2024, time.June, 15), 7)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"soonest", "first-tie", "second-tie", "later"}
	if len(due) != len(want) {
		t.Fatalf("got %d due, want %d", len(due), len(want))
	}
	for i, id := range want {
		if due[i].UserID != id {
			t.Errorf("position %d: got %v, want %v", i, due[i].UserID, id)
		}
	}
}

func TestDueWithinSkipsMalformedRecords(t *testing.T) {
	records := []Record{
		{UserID: "bad-month", Month: 13, Day: 1},
		{UserID: "bad-day", Month: 4, Day: 31},
		{UserID: "good", Month: 6, Day: 15},
	}

	due, err := DueWithin(records, date(2024, time.June, 15), 365)
	if err != nil {
		t.Fatal(err)
	}

	if len(due) != 1 || due[0].UserID != "good" {
		t.Errorf("got %+v, want only the valid record", due)
	}
}

func TestTodayExactMatchesZeroWindow(t *testing.T) {
	records := []Record{
		{UserID: "a", Month: 6, Day: 15},
		{UserID: "b", Month: 6, Day: 15, Year: intPtr(1999)},
		{UserID: "c", Month: 6, Day: 16},
	}
	today := date(2024, time.June, 15)

	due, err := DueWithin(records, today, 0)
	if err != nil {
		t.Fatal(err)
	}
	ids := TodayExact(records, today)

	if len(ids) != len(due) {
		t.Fatalf("TodayExact returned %d, DueWithin(0) returned %d", len(ids), len(due))
	}
	for i, d := range due {
		if ids[i] != d.UserID {
			t.Errorf("position %d: %v != %v", i, ids[i], d.UserID)
		}
	}
}

func TestTodayExactEmpty(t *testing.T) {
	records := []Record{{UserID: "1", Month: 6, Day: 16}}

	if ids := TodayExact(records, date(2024, time.June, 15)); len(ids) != 0 {
		t.Errorf("got %v, want empty", ids)
	}
}

func TestMidnightIgnoresTimeOfDay(t *testing.T) {
	records := []Record{{UserID: "1", Month: 6, Day: 15}}

	now := time.Date(2024, time.June, 15, 23, 59, 59, 0, time.UTC)
	if ids := TodayExact(records, now); len(ids) != 1 {
		t.Errorf("got %v, want the member due late in the day", ids)
	}
}
