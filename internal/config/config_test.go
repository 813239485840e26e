package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workoutcal/internal/ics"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "embedded", cfg.Source.Kind)
	assert.Equal(t, DefaultFirstWorkoutDay, cfg.FirstWorkoutDay)
	assert.Equal(t, DefaultOutput, cfg.Output)
	require.NotNil(t, cfg.StartOffsetDays)
	assert.Equal(t, DefaultStartOffsetDays, *cfg.StartOffsetDays)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadPartialConfig(t *testing.T) {
	path := writeConfig(t, `
source:
  kind: file
  path: /data/plan.b64
start_date: "2020-05-29"
first_workout_day: 1
start_offset_days: 0
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.Source.Kind)
	assert.Equal(t, "/data/plan.b64", cfg.Source.Path)
	assert.Equal(t, 1, cfg.FirstWorkoutDay)
	assert.Equal(t, 0, *cfg.StartOffsetDays)
	assert.Equal(t, DefaultCalendarName, cfg.CalendarName)
	assert.Equal(t, DefaultListen, cfg.Listen)
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":       "source: [",
		"unknown kind":   "source:\n  kind: ftp\n",
		"file no path":   "source:\n  kind: file\n",
		"url no url":     "source:\n  kind: url\n",
		"day too large":  "first_workout_day: 100\n",
		"negative day":   "first_workout_day: -1\n",
		"bad start date": "start_date: 29.05.2020\n",
		"neg offset":     "start_offset_days: -3\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("WORKOUTCAL_FIRST_WORKOUT_DAY", "59")
	t.Setenv("WORKOUTCAL_START_DATE", "2025-12-31")
	t.Setenv("WORKOUTCAL_OUTPUT", "/tmp/out.ics")

	cfg, err := Load(writeConfig(t, "first_workout_day: 3\n"))
	require.NoError(t, err)
	assert.Equal(t, 59, cfg.FirstWorkoutDay)
	assert.Equal(t, "2025-12-31", cfg.StartDate)
	assert.Equal(t, "/tmp/out.ics", cfg.Output)
}

func TestAnchorDate(t *testing.T) {
	now := time.Date(2026, 10, 14, 23, 30, 0, 0, time.FixedZone("CEST", 2*3600))

	cfg := DefaultConfig()
	got, err := cfg.AnchorDate(now)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-16", got.Format(ics.DateLayout))

	zero := 0
	cfg.StartOffsetDays = &zero
	got, err = cfg.AnchorDate(now)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-14", got.Format(ics.DateLayout))

	cfg.StartDate = "2000-01-02"
	got, err = cfg.AnchorDate(now)
	require.NoError(t, err)
	assert.True(t, got.Equal(ics.NaiveDate(time.Date(2000, 1, 2, 15, 0, 0, 0, time.Local))))

	cfg.StartDate = "02.01.2000"
	_, err = cfg.AnchorDate(now)
	assert.ErrorContains(t, err, "start_date")
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "cal.ics")
	require.NoError(t, WriteFileAtomic(path, []byte("BEGIN:VCALENDAR"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "BEGIN:VCALENDAR", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
