package workout

import (
	"strconv"
	"strings"
	"unicode"

	appLog "workoutcal/internal/log"
	"workoutcal/internal/model"
)

// NewWorkout builds a single record from a title and its body text.
func NewWorkout(title, body string) (model.Workout, error) {
	day, err := parseDay(title)
	if err != nil {
		return model.Workout{}, err
	}
	return model.Workout{
		Title: title,
		Body:  strings.TrimRightFunc(body, unicode.IsSpace),
		Day:   day,
	}, nil
}

// parseDay reads the ordinal in front of the first '.' of a title.
func parseDay(title string) (uint8, error) {
	prefix, _, _ := strings.Cut(title, ".")
	n, err := strconv.ParseUint(prefix, 10, 8)
	if err != nil {
		return 0, &MalformedTitleError{Title: title, Err: err}
	}
	return uint8(n), nil
}

// Build pairs each marker chunk with the filler chunk that follows it.
// A marker followed directly by another marker, or ending the sequence,
// gets an empty body. Filler that does not follow a marker is skipped.
func Build(chunks []model.Chunk) ([]model.Workout, error) {
	workouts := make([]model.Workout, 0, (len(chunks)+1)/2)

	for i := 0; i < len(chunks); i++ {
		c := chunks[i]
		if !c.Marker {
			appLog.Debug("skipping filler without marker", "index", i)
			continue
		}

		body := ""
		if i+1 < len(chunks) && !chunks[i+1].Marker {
			body = chunks[i+1].Text
			i++
		} else {
			appLog.Warn("workout has empty body", "title", c.Text)
		}

		w, err := NewWorkout(c.Text, body)
		if err != nil {
			return nil, err
		}
		if n := len(workouts); n > 0 && w.Day <= workouts[n-1].Day {
			appLog.Warn("workout day not increasing", "title", w.Title, "previous_day", workouts[n-1].Day)
		}
		workouts = append(workouts, w)
	}

	return workouts, nil
}
