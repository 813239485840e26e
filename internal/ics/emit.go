package ics

import (
	"errors"
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	appLog "workoutcal/internal/log"
	"workoutcal/internal/model"
)

const (
	// DefaultCalendarName is the display name used when none is configured.
	DefaultCalendarName = "FitmacherFormel"

	productID  = "-//workoutcal//Workout Calendar//DE"
	uidDomain  = "workoutcal"
	publishTTL = "PT12H"
)

// EmitOptions controls calendar-level properties.
type EmitOptions struct {
	// Name is written as X-WR-CALNAME and NAME. Empty means DefaultCalendarName.
	Name string
	// Subscription adds METHOD:PUBLISH and X-PUBLISHED-TTL for feeds that
	// calendar apps poll.
	Subscription bool
	// Now stamps DTSTAMP/CREATED; zero means time.Now().
	Now time.Time
}

// Document is an emitted calendar together with the schedule it encodes.
type Document struct {
	Name     string
	Workouts []model.ScheduledWorkout

	cal *ical.Calendar
}

// Serialize renders the calendar in iCalendar text format.
func (d *Document) Serialize() string {
	return d.cal.Serialize()
}

// WriteTo writes the serialized calendar to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, d.Serialize())
	return int64(n), err
}

// Emit schedules workouts on consecutive days from anchor and builds one
// all-day VEVENT per workout, in input order.
func Emit(workouts []model.Workout, anchor time.Time, opts EmitOptions) (*Document, error) {
	if anchor.IsZero() {
		return nil, errors.New("emit: anchor date is zero")
	}
	name := opts.Name
	if name == "" {
		name = DefaultCalendarName
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	dates, err := Schedule(anchor, len(workouts))
	if err != nil {
		return nil, err
	}

	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetXWRCalName(name)
	cal.SetName(name)
	if opts.Subscription {
		cal.SetMethod(ical.MethodPublish)
		cal.SetXPublishedTTL(publishTTL)
	}

	scheduled := make([]model.ScheduledWorkout, 0, len(workouts))
	for i, w := range workouts {
		uid := fmt.Sprintf("%s@%s", uuid.NewString(), uidDomain)
		date := dates[i]

		ev := cal.AddEvent(uid)
		ev.SetCreatedTime(now)
		ev.SetDtStampTime(now)
		ev.SetSummary(w.Title)
		ev.SetDescription(w.Description())
		ev.SetAllDayStartAt(date)
		ev.SetAllDayEndAt(date)

		scheduled = append(scheduled, model.ScheduledWorkout{Workout: w, Date: date, UID: uid})
	}

	if len(scheduled) > 0 {
		appLog.Info("calendar emitted",
			"name", name,
			"events", len(scheduled),
			"first_date", scheduled[0].Date.Format(DateLayout),
			"last_date", scheduled[len(scheduled)-1].Date.Format(DateLayout),
		)
	} else {
		appLog.Warn("calendar emitted without events", "name", name)
	}

	return &Document{Name: name, Workouts: scheduled, cal: cal}, nil
}
