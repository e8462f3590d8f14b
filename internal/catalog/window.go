package catalog

import (
	"errors"
	"fmt"
	"time"
)

const (
	monthLayout = "2006-01"
	dateLayout  = "2006-01-02"
)

// ErrInvalidRange is returned when the start date is after the end date.
var ErrInvalidRange = errors.New("catalog: start date is after end date")

// Window is a date interval queried as a single catalog request.
// Start and End are inclusive calendar dates at midnight UTC.
type Window struct {
	Start time.Time
	End   time.Time
	Limit int
}

// Key returns the "YYYY-MM" month of the window.
func (w Window) Key() string {
	return w.Start.Format(monthLayout)
}

func (w Window) String() string {
	return fmt.Sprintf("%s [%s, %s]", w.Key(), w.Start.Format(dateLayout), w.End.Format(dateLayout))
}

// Months partitions [start, end] into one window per calendar month.
// The first and last windows are clipped to the range, so the windows are
// contiguous, do not overlap, and cover the range exactly. Time of day is
// ignored.
func Months(start, end time.Time, limit int) ([]Window, error) {
	start = Day(start)
	end = Day(end)
	if start.After(end) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidRange, start.Format(dateLayout), end.Format(dateLayout))
	}

	var windows []Window
	for cur := start; !cur.After(end); {
		next := time.Date(cur.Year(), cur.Month()+1, 1, 0, 0, 0, 0, time.UTC)
		monthEnd := next.AddDate(0, 0, -1)
		if monthEnd.After(end) {
			monthEnd = end
		}

		windows = append(windows, Window{Start: cur, End: monthEnd, Limit: limit})
		cur = next
	}
	return windows, nil
}

// Day returns the calendar date of t as midnight UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a "YYYY-MM-DD" date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}
