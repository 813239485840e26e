package ics

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// DateLayout is the YYYY-MM-DD form used for anchor dates in config and flags.
const DateLayout = "2006-01-02"

// NaiveDate strips the clock and zone of t, keeping its calendar date.
func NaiveDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD anchor date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Schedule returns n consecutive dates starting at the anchor date, one per
// day (FREQ=DAILY;COUNT=n).
func Schedule(anchor time.Time, n int) ([]time.Time, error) {
	if n < 0 {
		return nil, errors.New("schedule: negative count")
	}
	if n == 0 {
		// COUNT=0 would mean an unbounded rule.
		return []time.Time{}, nil
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: NaiveDate(anchor),
		Count:   n,
	})
	if err != nil {
		return nil, fmt.Errorf("schedule: %w", err)
	}

	dates := r.All()
	if len(dates) != n {
		return nil, fmt.Errorf("schedule: expected %d dates, got %d", n, len(dates))
	}
	return dates, nil
}
