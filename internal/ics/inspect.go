package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "workoutcal/internal/log"
)

// EventInfo is the part of a VEVENT that the workout calendar writes.
type EventInfo struct {
	UID         string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	AllDay      bool
}

// Summary describes an iCalendar document read back from disk or HTTP.
type Summary struct {
	Name   string
	Method string
	Events []EventInfo
}

// Inspect parses an ICS payload and reports the calendar name and its events
// in document order. Events with unreadable dates are logged and skipped.
func Inspect(body []byte) (Summary, error) {
	var out Summary
	if len(body) == 0 {
		return out, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return out, err
	}

	for _, p := range cal.CalendarProperties {
		switch p.IANAToken {
		case string(ical.PropertyXWRCalName):
			out.Name = p.Value
		case string(ical.PropertyMethod):
			out.Method = p.Value
		}
	}

	for _, ve := range cal.Events() {
		info, perr := inspectVEvent(ve)
		if perr != nil {
			appLog.Error("ics vevent inspect failed", perr, "uid", info.UID)
			continue
		}
		out.Events = append(out.Events, info)
	}

	return out, nil
}

func inspectVEvent(ve *ical.VEvent) (EventInfo, error) {
	var out EventInfo
	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		out.UID = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}

	start := ve.GetProperty(ical.ComponentPropertyDtStart)
	if start == nil {
		return out, errors.New("missing DTSTART")
	}
	t, err := parseICSTime(start.Value)
	if err != nil {
		return out, err
	}
	out.Start = t
	out.AllDay = !strings.Contains(start.Value, "T")
	if vs, ok := start.ICalParameters[string(ical.ParameterValue)]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		out.AllDay = true
	}

	if end := ve.GetProperty(ical.ComponentPropertyDtEnd); end != nil {
		if t, err := parseICSTime(end.Value); err == nil {
			out.End = t
		}
	}
	return out, nil
}

// parseICSTime parses DATE and DATE-TIME values. Floating times are read as
// UTC since the workout calendar has no timezone model.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g., 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	// Floating date-time, e.g., 20250101T090000
	if strings.Contains(v, "T") {
		return time.Parse("20060102T150405", v)
	}
	// Date-only (all-day), e.g., 20250101
	return time.Parse("20060102", v)
}
