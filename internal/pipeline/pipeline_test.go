package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workoutcal/internal/ics"
	"workoutcal/internal/source"
	"workoutcal/internal/workout"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRunSmallDocument(t *testing.T) {
	src := source.Embedded{Data: workout.Encode("1. TAG\nabc\n2. TAG\ndef\n3. TAG\nghi")}

	res, err := Run(context.Background(), src, Options{
		AnchorDate:      day(2000, 1, 2),
		FirstWorkoutDay: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Parsed)

	ws := res.Document.Workouts
	require.Len(t, ws, 2)
	assert.Equal(t, uint8(2), ws[0].Day)
	assert.Equal(t, "2000-01-02", ws[0].Date.Format(ics.DateLayout))
	assert.Equal(t, "2. TAG\ndef", ws[0].Description())
	assert.Equal(t, uint8(3), ws[1].Day)
	assert.Equal(t, "2000-01-03", ws[1].Date.Format(ics.DateLayout))
	assert.Equal(t, "3. TAG\nghi", ws[1].Description())

	out := res.Document.Serialize()
	assert.Contains(t, out, "SUMMARY:2. TAG")
	assert.Contains(t, out, "DTSTART;VALUE=DATE:20000102")
	assert.Contains(t, out, "DTSTART;VALUE=DATE:20000103")
	assert.NotContains(t, out, "SUMMARY:1. TAG")
}

func TestRunEmbeddedFullPlan(t *testing.T) {
	res, err := Run(context.Background(), source.Embedded{}, Options{
		AnchorDate:      day(2020, 5, 29),
		FirstWorkoutDay: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 60, res.Parsed)
	require.Len(t, res.Document.Workouts, 60)

	last := res.Document.Workouts[59]
	assert.Equal(t, uint8(60), last.Day)
	assert.Equal(t, "2020-07-27", last.Date.Format(ics.DateLayout))

	out := res.Document.Serialize()
	assert.Equal(t, 60, strings.Count(out, "BEGIN:VEVENT"))
	assert.Contains(t, out, "X-WR-CALNAME:FitmacherFormel")
}

func TestRunEmbeddedLastDays(t *testing.T) {
	res, err := Run(context.Background(), source.Embedded{}, Options{
		AnchorDate:      day(2025, 12, 31),
		FirstWorkoutDay: 59,
	})
	require.NoError(t, err)
	require.Len(t, res.Document.Workouts, 2)

	out := res.Document.Serialize()
	assert.Contains(t, out, "DESCRIPTION:59. TAG: ENJOY")
	assert.Contains(t, out, "DESCRIPTION:60. TAG")
	assert.Contains(t, out, "DTEND;VALUE=DATE:20260101")
	assert.Contains(t, out, "Pause")
}

func TestRunThresholdAboveEveryDay(t *testing.T) {
	res, err := Run(context.Background(), source.Embedded{}, Options{
		AnchorDate:      day(2025, 1, 1),
		FirstWorkoutDay: 61,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Document.Workouts)
	assert.NotContains(t, res.Document.Serialize(), "BEGIN:VEVENT")
}

func TestRunFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.b64")
	require.NoError(t, os.WriteFile(path, []byte(workout.Encode("Vorwort\n1. TAG\nLaufen\n")), 0o600))

	res, err := Run(context.Background(), source.File{Path: path}, Options{AnchorDate: day(2000, 1, 2)})
	require.NoError(t, err)
	require.Len(t, res.Document.Workouts, 1)
	assert.Equal(t, "\nLaufen", res.Document.Workouts[0].Body)
}

func TestRunStageErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   source.Provider
		opts  Options
		stage string
		is    error
	}{
		{
			name:  "missing file",
			src:   source.File{Path: filepath.Join(t.TempDir(), "missing.b64")},
			opts:  Options{AnchorDate: day(2000, 1, 2)},
			stage: StageSource,
			is:    os.ErrNotExist,
		},
		{
			name:  "not base64",
			src:   source.Embedded{Data: "%%%"},
			opts:  Options{AnchorDate: day(2000, 1, 2)},
			stage: StageDecode,
			is:    workout.ErrDecode,
		},
		{
			name:  "not utf-8",
			src:   source.Embedded{Data: "//4="},
			opts:  Options{AnchorDate: day(2000, 1, 2)},
			stage: StageDecode,
			is:    workout.ErrEncoding,
		},
		{
			name:  "zero anchor",
			src:   source.Embedded{},
			opts:  Options{},
			stage: StageEmit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Run(context.Background(), tt.src, tt.opts)
			assert.Nil(t, res)
			require.Error(t, err)

			var se *StageError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.stage, se.Stage)
			assert.Contains(t, err.Error(), tt.stage+" stage failed")
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestRunNilSource(t *testing.T) {
	_, err := Run(context.Background(), nil, Options{AnchorDate: day(2000, 1, 2)})
	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageSource, se.Stage)
}
