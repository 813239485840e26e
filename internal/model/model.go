package model

import "time"

// Workout is one day of the training plan as found in the source document.
// Values are built once by the record builder and never mutated.
type Workout struct {
	// Title is the marker line including same-line trailing text,
	// e.g. "14. TAG: ENJOY".
	Title string `json:"title"`
	// Body is everything up to the next marker, trailing whitespace removed.
	Body string `json:"body"`
	// Day is the ordinal parsed from the Title prefix before the first '.'.
	Day uint8 `json:"day"`
}

// Description is the event description text: title immediately followed by
// body, no separator.
func (w Workout) Description() string {
	return w.Title + w.Body
}

// Chunk is a slice of the raw document produced by the segmenter.
type Chunk struct {
	Text string
	// Marker is true for day-marker slices, false for filler between them.
	Marker bool
}

// ScheduledWorkout pairs a workout with the all-day date it was assigned.
type ScheduledWorkout struct {
	Workout
	Date time.Time `json:"date"`
	UID  string    `json:"uid"`
}
