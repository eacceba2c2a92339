// Package dateparse turns the loosely formatted date strings staff type into
// group records ("2026-03-01", "03/01/2026", "March 1, 2026") into calendar
// days in the service's time zone.
package dateparse

import (
	"errors"
	"strings"
	"time"
)

// ErrUnparsable is returned when no known layout matches.
var ErrUnparsable = errors.New("unrecognised date")

// layouts are tried in order; the first match wins. US month-first forms are
// listed before anything day-first because that is how the group editor
// writes them.
var layouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"20060102",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// Parse returns the calendar day s names, as midnight in loc.
// A nil loc means UTC.
func Parse(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrUnparsable
	}
	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			continue
		}
		if layout == time.RFC3339 {
			t = t.In(loc)
		}
		return StartOfDay(t, loc), nil
	}
	return time.Time{}, ErrUnparsable
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// EndOfDay returns the first instant of the day after t's calendar day in loc.
// A room expiring "today" has expires_at strictly before this instant.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	return StartOfDay(t, loc).AddDate(0, 0, 1)
}

// Location loads an IANA zone name, falling back to UTC when name is empty.
func Location(name string) (*time.Location, error) {
	if strings.TrimSpace(name) == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}
