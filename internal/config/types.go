package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Defaults mirror the production deployment: a run every 60-90 minutes and a
// flat five-minute cooldown after a launch failure.
const (
	DefaultMinIntervalMinutes = 60
	DefaultMaxIntervalMinutes = 90
	DefaultFailureCooldown    = "5m"
	DefaultHeartbeatSpec      = "0 * * * *"
	DefaultLogFileName        = "claimd.log"
)

type Config struct {
	Schedule ScheduleConfig `json:"schedule"`
	Job      JobConfig      `json:"job"`
	Logging  LoggingConfig  `json:"logging,omitempty"`

	// Heartbeat controls the periodic status-summary line.
	Heartbeat HeartbeatConfig `json:"heartbeat,omitempty"`

	// Storage controls the optional run-history store.
	// If omitted, runs are logged and discarded.
	Storage *StorageConfig `json:"storage,omitempty"`
}

// ScheduleConfig is immutable for the lifetime of the process: a change on
// disk is logged as "restart required" and otherwise ignored.
//
// Intervals are parameterized in whole minutes; the jitter generator draws
// uniformly from the inclusive range [min, max].
type ScheduleConfig struct {
	MinIntervalMinutes int `json:"min_interval_minutes,omitempty"`
	MaxIntervalMinutes int `json:"max_interval_minutes,omitempty"`

	// FailureCooldown is a Go duration string (e.g. "5m", "2s").
	// It is the fixed, non-escalating wait after a launch failure.
	FailureCooldown string `json:"failure_cooldown,omitempty"`
}

// JobConfig describes the external job as an opaque command. The scheduler
// never interprets the directories or the env file; it only hands them over.
type JobConfig struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`

	// WorkingDir is passed as the subprocess working directory for every
	// invocation. It is created at startup if absent.
	WorkingDir string `json:"working_dir,omitempty"`

	// MediaDir and DataDir are bind-mount style directories owned by the job.
	MediaDir string `json:"media_dir,omitempty"`
	DataDir  string `json:"data_dir,omitempty"`

	// EnvFile is an opaque path handed to the job. Existence is not
	// validated here; a missing file is the job's failure to report.
	EnvFile string `json:"env_file,omitempty"`
}

type LoggingConfig struct {
	Level string `json:"level,omitempty"`

	// Console is a pointer so "omitted" (default true) is distinguishable
	// from an explicit false.
	Console *bool `json:"console,omitempty"`

	File LoggingFileConfig `json:"file,omitempty"`
}

type LoggingFileConfig struct {
	Enabled *bool  `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

type HeartbeatConfig struct {
	Enabled *bool `json:"enabled,omitempty"`

	// Spec is a standard 5-field cron expression.
	Spec string `json:"spec,omitempty"`
}

// StorageConfig controls the optional run-history store.
//
// Driver values:
//   - "" or "none": disabled
//   - "file": append-only JSON Lines
//   - "sqlite": SQLite database file
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// Normalize fills defaults in place. It is idempotent.
func (c *Config) Normalize() {
	if c.Schedule.MinIntervalMinutes == 0 && c.Schedule.MaxIntervalMinutes == 0 {
		c.Schedule.MinIntervalMinutes = DefaultMinIntervalMinutes
		c.Schedule.MaxIntervalMinutes = DefaultMaxIntervalMinutes
	}
	if strings.TrimSpace(c.Schedule.FailureCooldown) == "" {
		c.Schedule.FailureCooldown = DefaultFailureCooldown
	}
	if strings.TrimSpace(c.Job.WorkingDir) == "" {
		c.Job.WorkingDir = "."
	}
	if strings.TrimSpace(c.Logging.File.Path) == "" {
		c.Logging.File.Path = filepath.Join(c.Job.WorkingDir, DefaultLogFileName)
	}
	if strings.TrimSpace(c.Heartbeat.Spec) == "" {
		c.Heartbeat.Spec = DefaultHeartbeatSpec
	}
}

// Validate rejects configs the scheduler cannot run with. It assumes
// Normalize has been applied.
func (c *Config) Validate() error {
	if c.Schedule.MinIntervalMinutes <= 0 {
		return fmt.Errorf("schedule.min_interval_minutes must be > 0, got %d", c.Schedule.MinIntervalMinutes)
	}
	if c.Schedule.MaxIntervalMinutes < c.Schedule.MinIntervalMinutes {
		return fmt.Errorf("schedule.max_interval_minutes (%d) must be >= schedule.min_interval_minutes (%d)",
			c.Schedule.MaxIntervalMinutes, c.Schedule.MinIntervalMinutes)
	}
	if _, err := ParseDurationField("schedule.failure_cooldown", c.Schedule.FailureCooldown); err != nil {
		return err
	}
	if strings.TrimSpace(c.Job.Command) == "" {
		return errors.New("job.command is required")
	}
	if c.Storage != nil {
		if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
			return err
		}
	}
	return nil
}

// ConsoleEnabled resolves the pointer-bool default (true).
func (l LoggingConfig) ConsoleEnabled() bool {
	if l.Console == nil {
		return true
	}
	return *l.Console
}

// FileEnabled resolves the pointer-bool default (true).
func (l LoggingFileConfig) FileEnabled() bool {
	if l.Enabled == nil {
		return true
	}
	return *l.Enabled
}

// HeartbeatEnabled resolves the pointer-bool default (true).
func (h HeartbeatConfig) HeartbeatEnabled() bool {
	if h.Enabled == nil {
		return true
	}
	return *h.Enabled
}
