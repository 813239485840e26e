package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"workoutcal/internal/ics"
	appLog "workoutcal/internal/log"
	"workoutcal/internal/source"
	"workoutcal/internal/workout"
)

// Stage names used in StageError.
const (
	StageSource = "source"
	StageDecode = "decode"
	StageBuild  = "build"
	StageEmit   = "emit"
)

// StageError reports which step of the run failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Options are the two scheduling parameters of a run plus the calendar-level
// settings passed to the emitter.
type Options struct {
	AnchorDate      time.Time
	FirstWorkoutDay uint8
	Emit            ics.EmitOptions
}

// Result is the outcome of a successful run.
type Result struct {
	Document *ics.Document
	// Parsed is the number of workouts in the source before filtering.
	Parsed      int
	GeneratedAt time.Time
}

// Run reads the encoded document from src and turns it into a calendar.
// Any failure aborts the run; no partial result is returned.
func Run(ctx context.Context, src source.Provider, opts Options) (*Result, error) {
	if src == nil {
		return nil, &StageError{Stage: StageSource, Err: errors.New("no source provider")}
	}

	encoded, err := src.Encoded(ctx)
	if err != nil {
		return nil, &StageError{Stage: StageSource, Err: err}
	}

	text, err := workout.Decode(encoded)
	if err != nil {
		return nil, &StageError{Stage: StageDecode, Err: err}
	}

	chunks := workout.Segment(text)
	workouts, err := workout.Build(chunks)
	if err != nil {
		return nil, &StageError{Stage: StageBuild, Err: err}
	}

	selected := workout.Select(workouts, opts.FirstWorkoutDay)
	appLog.Info("workouts selected",
		"source", src.Name(),
		"chunks", len(chunks),
		"parsed", len(workouts),
		"selected", len(selected),
		"first_workout_day", opts.FirstWorkoutDay,
	)

	doc, err := ics.Emit(selected, opts.AnchorDate, opts.Emit)
	if err != nil {
		return nil, &StageError{Stage: StageEmit, Err: err}
	}

	return &Result{
		Document:    doc,
		Parsed:      len(workouts),
		GeneratedAt: time.Now(),
	}, nil
}
