package workout

import "workoutcal/internal/model"

// Select keeps workouts whose day is at least threshold, in input order.
func Select(workouts []model.Workout, threshold uint8) []model.Workout {
	out := make([]model.Workout, 0, len(workouts))
	for _, w := range workouts {
		if w.Day >= threshold {
			out = append(out, w)
		}
	}
	return out
}
