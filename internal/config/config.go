package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/config"

	"github.com/julianstephens/habitline/internal/calendar"
	"github.com/julianstephens/habitline/internal/constants"
	"github.com/julianstephens/habitline/internal/models"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverJSON     = "json"
)

type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Calendar  CalendarConfig  `yaml:"calendar"`
	Reminders RemindersConfig `yaml:"reminders"`
	Daemon    DaemonConfig    `yaml:"daemon"`
	Logging   LoggingConfig   `yaml:"logging"`
	Notifier  NotifierConfig  `yaml:"notifier"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	// DSN is the PostgreSQL connection string. Credentials must come from
	// the environment, .pgpass or the OS keyring.
	DSN string `yaml:"dsn"`
}

type CalendarConfig struct {
	Timezone     string `yaml:"timezone"`
	FirstWeekday string `yaml:"first_weekday"`
}

// RemindersConfig seeds the stored settings of a freshly initialized store.
type RemindersConfig struct {
	Enabled       bool   `yaml:"enabled"`
	MissedEnabled bool   `yaml:"missed_enabled"`
	MissedTime    string `yaml:"missed_time"`
}

type DaemonConfig struct {
	DispatchSchedule string        `yaml:"dispatch_schedule"`
	RolloverSchedule string        `yaml:"rollover_schedule"`
	GracePeriod      time.Duration `yaml:"grace_period"`
}

type LoggingConfig struct {
	Debug bool   `yaml:"debug"`
	Dir   string `yaml:"dir"`
}

type NotifierConfig struct {
	DryRun bool `yaml:"dry_run"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Storage: StorageConfig{
			Driver: DriverSQLite,
			Path:   filepath.Join(constants.DefaultConfigDir, constants.DefaultDBFile),
		},
		Calendar: CalendarConfig{
			Timezone:     constants.DefaultTimezone,
			FirstWeekday: "auto",
		},
		Reminders: RemindersConfig{
			Enabled:       constants.DefaultNotificationsEnabled,
			MissedEnabled: constants.DefaultMissedHabitNotificationsEnabled,
			MissedTime:    constants.DefaultMissedHabitNotificationTime,
		},
		Daemon: DaemonConfig{
			DispatchSchedule: constants.DefaultDispatchSchedule,
			RolloverSchedule: constants.DefaultRolloverSchedule,
			GracePeriod:      constants.NotificationGracePeriod,
		},
	}
}

// DefaultPath is ~/.config/habitline/config.yaml, expanded.
func DefaultPath() string {
	return ExpandHome(filepath.Join(constants.DefaultConfigDir, constants.DefaultConfigFile))
}

// Load reads the YAML file at path on top of the defaults, expands ${VAR}
// references and applies HABITLINE_* environment overrides. A missing file
// is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	path = ExpandHome(path)

	opts := []config.YAMLOption{config.Static(Default())}
	if _, err := os.Stat(path); err == nil {
		opts = append(opts, config.File(path))
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to access config file: %w", err)
	}
	opts = append(opts, config.Expand(os.LookupEnv))

	provider, err := config.NewYAML(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create config provider: %w", err)
	}

	var cfg Config
	if err := provider.Get(config.Root).Populate(&cfg); err != nil {
		return nil, fmt.Errorf("failed to populate config: %w", err)
	}

	cfg.overrideFromEnv()
	cfg.Storage.Path = ExpandHome(cfg.Storage.Path)
	cfg.Logging.Dir = ExpandHome(cfg.Logging.Dir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables if present
func (c *Config) overrideFromEnv() {
	if val := os.Getenv("HABITLINE_STORAGE_DRIVER"); val != "" {
		c.Storage.Driver = val
	}
	if val := os.Getenv("HABITLINE_DB_PATH"); val != "" {
		c.Storage.Path = val
	}
	if val := os.Getenv("HABITLINE_DB_CONNECTION"); val != "" {
		c.Storage.DSN = val
	}
	if val := os.Getenv("HABITLINE_TIMEZONE"); val != "" {
		c.Calendar.Timezone = val
	}
	if val := os.Getenv("HABITLINE_FIRST_WEEKDAY"); val != "" {
		c.Calendar.FirstWeekday = val
	}
	if val := os.Getenv("HABITLINE_LOG_DIR"); val != "" {
		c.Logging.Dir = val
	}
	if val := os.Getenv("HABITLINE_DEBUG"); val != "" {
		if debug, err := strconv.ParseBool(val); err == nil {
			c.Logging.Debug = debug
		}
	}
	if val := os.Getenv("HABITLINE_DRY_RUN"); val != "" {
		if dryRun, err := strconv.ParseBool(val); err == nil {
			c.Notifier.DryRun = dryRun
		}
	}
}

// Validate checks every field that is parsed later, so bad values are
// reported at startup.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite, DriverJSON:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the %s driver", c.Storage.Driver)
		}
	case DriverPostgres:
	default:
		return fmt.Errorf("unknown storage driver %q (want sqlite, postgres or json)", c.Storage.Driver)
	}
	if _, err := calendar.LoadLocation(c.Calendar.Timezone); err != nil {
		return fmt.Errorf("invalid calendar.timezone %q: %w", c.Calendar.Timezone, err)
	}
	if _, err := calendar.ParseWeekday(c.Calendar.FirstWeekday); err != nil {
		return fmt.Errorf("invalid calendar.first_weekday: %w", err)
	}
	if _, err := models.ParseTimeOfDay(c.Reminders.MissedTime); err != nil {
		return fmt.Errorf("invalid reminders.missed_time: %w", err)
	}
	if _, err := cron.ParseStandard(c.Daemon.DispatchSchedule); err != nil {
		return fmt.Errorf("invalid daemon.dispatch_schedule: %w", err)
	}
	if _, err := cron.ParseStandard(c.Daemon.RolloverSchedule); err != nil {
		return fmt.Errorf("invalid daemon.rollover_schedule: %w", err)
	}
	if c.Daemon.GracePeriod <= 0 {
		return fmt.Errorf("daemon.grace_period must be positive")
	}
	return nil
}

// NewCalendar builds the calendar described by the configuration.
func (c *Config) NewCalendar(clock calendar.Clock) (*calendar.Calendar, error) {
	loc, err := calendar.LoadLocation(c.Calendar.Timezone)
	if err != nil {
		return nil, err
	}
	first, err := calendar.ParseWeekday(c.Calendar.FirstWeekday)
	if err != nil {
		return nil, err
	}
	return calendar.New(loc, first, clock), nil
}

// SeedSettings applies the reminders section to settings.
func (c *Config) SeedSettings(s models.Settings) models.Settings {
	s.NotificationsEnabled = c.Reminders.Enabled
	s.MissedHabitNotificationsEnabled = c.Reminders.MissedEnabled
	s.MissedHabitNotificationTime = c.Reminders.MissedTime
	if c.Calendar.Timezone != "" {
		s.Timezone = c.Calendar.Timezone
	}
	return s
}

// IsPostgresURL reports whether s looks like a PostgreSQL connection URL.
func IsPostgresURL(s string) bool {
	return strings.HasPrefix(s, "postgres://") || strings.HasPrefix(s, "postgresql://")
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
