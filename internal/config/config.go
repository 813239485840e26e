package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"workoutcal/internal/ics"
)

// Defaults mirror the behavior of the first command-line version: start two
// days from now, skip the first thirteen days, write FitmacherFormel.ics.
const (
	DefaultStartOffsetDays = 2
	DefaultFirstWorkoutDay = 14
	DefaultCalendarName    = "FitmacherFormel"
	DefaultOutput          = "FitmacherFormel.ics"
	DefaultListen          = "127.0.0.1:8080"
	DefaultRefreshCron     = "5 0 * * *"
	DefaultLogLevel        = "info"

	// MaxWorkoutDay is the largest ordinal a two-digit day marker can carry.
	MaxWorkoutDay = 99
)

// SourceConfig selects where the encoded workout document comes from.
type SourceConfig struct {
	// Kind is one of "embedded" (default), "file" or "url".
	Kind string `yaml:"kind" json:"kind"`
	// Path is the encoded document on disk for Kind "file".
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
	// URL is fetched for Kind "url".
	URL string `yaml:"url,omitempty" json:"url,omitempty"`
	// CacheDir stores the last fetched copy for Kind "url".
	CacheDir string `yaml:"cache_dir,omitempty" json:"cache_dir,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the subscription feed.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	Source SourceConfig `yaml:"source" json:"source"`

	// StartDate (YYYY-MM-DD) pins the date of the first emitted workout.
	// When empty, today + StartOffsetDays is used.
	StartDate string `yaml:"start_date" json:"start_date"`
	// StartOffsetDays is only used when StartDate is empty. Nil means the
	// default; zero is a valid value (start today).
	StartOffsetDays *int `yaml:"start_offset_days" json:"start_offset_days"`

	// FirstWorkoutDay drops workouts with a lower day ordinal.
	FirstWorkoutDay int `yaml:"first_workout_day" json:"first_workout_day"`

	CalendarName string `yaml:"calendar_name" json:"calendar_name"`

	// Output is the path the one-shot run writes the calendar to.
	Output string `yaml:"output" json:"output"`

	// Listen is the HTTP listen address for serve mode.
	Listen string `yaml:"listen" json:"listen"`

	// RefreshCron is a cron-style schedule string used in serve mode to
	// rebuild the calendar (and roll the anchor date forward).
	RefreshCron string `yaml:"refresh" json:"refresh"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// BasicAuth, if non-nil, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	offset := DefaultStartOffsetDays
	return &Config{
		Source:          SourceConfig{Kind: "embedded"},
		StartOffsetDays: &offset,
		FirstWorkoutDay: DefaultFirstWorkoutDay,
		CalendarName:    DefaultCalendarName,
		Output:          DefaultOutput,
		Listen:          DefaultListen,
		RefreshCron:     DefaultRefreshCron,
		LogLevel:        DefaultLogLevel,
	}
}

// Normalize fills in missing values so that partially-filled configs
// still behave correctly.
func (c *Config) Normalize() {
	if c.Source.Kind == "" {
		c.Source.Kind = "embedded"
	}
	if c.StartOffsetDays == nil {
		offset := DefaultStartOffsetDays
		c.StartOffsetDays = &offset
	}
	if c.CalendarName == "" {
		c.CalendarName = DefaultCalendarName
	}
	if c.Output == "" {
		c.Output = DefaultOutput
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.RefreshCron == "" {
		c.RefreshCron = DefaultRefreshCron
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case "embedded":
	case "file":
		if c.Source.Path == "" {
			return errors.New("source.path is required for file sources")
		}
	case "url":
		if c.Source.URL == "" {
			return errors.New("source.url is required for url sources")
		}
	default:
		return fmt.Errorf("unknown source.kind %q", c.Source.Kind)
	}
	if c.FirstWorkoutDay < 0 || c.FirstWorkoutDay > MaxWorkoutDay {
		return fmt.Errorf("first_workout_day %d out of range 0..%d", c.FirstWorkoutDay, MaxWorkoutDay)
	}
	if c.StartDate != "" {
		if _, err := ics.ParseDate(c.StartDate); err != nil {
			return fmt.Errorf("start_date: %w", err)
		}
	}
	if c.StartOffsetDays != nil && *c.StartOffsetDays < 0 {
		return fmt.Errorf("start_offset_days %d is negative", *c.StartOffsetDays)
	}
	return nil
}

// AnchorDate resolves the date of the first emitted workout relative to now.
func (c *Config) AnchorDate(now time.Time) (time.Time, error) {
	if c.StartDate != "" {
		t, err := ics.ParseDate(c.StartDate)
		if err != nil {
			return time.Time{}, fmt.Errorf("start_date: %w", err)
		}
		return t, nil
	}
	offset := DefaultStartOffsetDays
	if c.StartOffsetDays != nil {
		offset = *c.StartOffsetDays
	}
	return ics.NaiveDate(now).AddDate(0, 0, offset), nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is unmarshaled and normalized.
//
// In both cases WORKOUTCAL_* environment overrides are applied and the
// result is validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	var cfg *Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// First run: create default config file.
		cfg = DefaultConfig()
		if err := Save(path, cfg); err != nil {
			return cfg, err
		}
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
		cfg.Normalize()
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides lets deployments tweak a config without editing it:
//
//	WORKOUTCAL_SOURCE_KIND, WORKOUTCAL_SOURCE_PATH, WORKOUTCAL_SOURCE_URL,
//	WORKOUTCAL_START_DATE, WORKOUTCAL_FIRST_WORKOUT_DAY,
//	WORKOUTCAL_OUTPUT, WORKOUTCAL_LISTEN, WORKOUTCAL_LOG_LEVEL
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WORKOUTCAL_SOURCE_KIND"); v != "" {
		cfg.Source.Kind = v
	}
	if v := os.Getenv("WORKOUTCAL_SOURCE_PATH"); v != "" {
		cfg.Source.Path = v
	}
	if v := os.Getenv("WORKOUTCAL_SOURCE_URL"); v != "" {
		cfg.Source.URL = v
	}
	if v := os.Getenv("WORKOUTCAL_START_DATE"); v != "" {
		cfg.StartDate = v
	}
	if v := os.Getenv("WORKOUTCAL_FIRST_WORKOUT_DAY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FirstWorkoutDay = n
		}
	}
	if v := os.Getenv("WORKOUTCAL_OUTPUT"); v != "" {
		cfg.Output = v
	}
	if v := os.Getenv("WORKOUTCAL_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("WORKOUTCAL_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// Save writes the given configuration to the specified path atomically
// (temp file + rename) with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, 0o600)
}

// WriteFileAtomic writes data to a temp file in the target directory and
// renames it over path, so readers never observe a partial file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".workoutcal-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
