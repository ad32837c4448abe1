package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAMLWithDefaults(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "claimd.yaml", `
job:
  command: docker
  args: ["run", "claim-job"]
  working_dir: /srv/claimd
`)
	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Schedule.MinIntervalMinutes != DefaultMinIntervalMinutes || cfg.Schedule.MaxIntervalMinutes != DefaultMaxIntervalMinutes {
		t.Fatalf("interval defaults = (%d, %d)", cfg.Schedule.MinIntervalMinutes, cfg.Schedule.MaxIntervalMinutes)
	}
	if cfg.Schedule.FailureCooldown != DefaultFailureCooldown {
		t.Fatalf("cooldown default = %q", cfg.Schedule.FailureCooldown)
	}
	if got := cfg.Logging.File.Path; got != filepath.Join("/srv/claimd", DefaultLogFileName) {
		t.Fatalf("log path default = %q", got)
	}
	if !cfg.Logging.ConsoleEnabled() || !cfg.Logging.File.FileEnabled() || !cfg.Heartbeat.HeartbeatEnabled() {
		t.Fatal("pointer-bool defaults should resolve to true")
	}
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "claimd.json", `{
  "schedule": {"min_interval_minutes": 30, "max_interval_minutes": 45, "failure_cooldown": "2m"},
  "job": {"command": "/usr/local/bin/claim", "working_dir": "/tmp/claimd"},
  "logging": {"level": "debug", "console": false},
  "storage": {"driver": "sqlite", "path": "/tmp/claimd/runs.db", "busy_timeout": "500ms"}
}`)
	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Schedule.MinIntervalMinutes != 30 || cfg.Schedule.MaxIntervalMinutes != 45 {
		t.Fatalf("interval = (%d, %d)", cfg.Schedule.MinIntervalMinutes, cfg.Schedule.MaxIntervalMinutes)
	}
	if cfg.Logging.ConsoleEnabled() {
		t.Fatal("explicit console=false lost")
	}
	if cfg.Storage == nil || cfg.Storage.Driver != "sqlite" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
	}{
		{
			name: "min greater than max",
			body: `{"schedule": {"min_interval_minutes": 90, "max_interval_minutes": 60}, "job": {"command": "x"}}`,
		},
		{
			name: "zero min interval",
			body: `{"schedule": {"min_interval_minutes": -5, "max_interval_minutes": 60}, "job": {"command": "x"}}`,
		},
		{
			name: "missing command",
			body: `{"job": {"working_dir": "/tmp"}}`,
		},
		{
			name: "bad cooldown",
			body: `{"schedule": {"failure_cooldown": "five minutes"}, "job": {"command": "x"}}`,
		},
		{
			name: "unknown field",
			body: `{"job": {"command": "x"}, "surprise": true}`,
		},
		{
			name: "trailing data",
			body: `{"job": {"command": "x"}}{"again": 1}`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := writeConfig(t, "claimd.json", tt.body)
			if _, err := NewManager(path).Load(); err == nil {
				t.Fatal("expected load error")
			}
		})
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	if d, err := ParseDurationField("x", "5m"); err != nil || d != 5*time.Minute {
		t.Fatalf("got (%v, %v)", d, err)
	}
	if d, err := ParseDurationField("x", "  "); err != nil || d != 0 {
		t.Fatalf("blank: got (%v, %v)", d, err)
	}
	if _, err := ParseDurationField("x", "-3s"); err == nil {
		t.Fatal("negative duration accepted")
	}
	if _, err := ParseDurationField("x", "soon"); err == nil {
		t.Fatal("garbage duration accepted")
	}
	if d, err := ParseDurationOrDefault("x", "", 7*time.Second); err != nil || d != 7*time.Second {
		t.Fatalf("default: got (%v, %v)", d, err)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	t.Parallel()
	cfg := &Config{Job: JobConfig{Command: "x"}}
	cfg.Normalize()
	first := *cfg
	cfg.Normalize()
	if !reflect.DeepEqual(*cfg, first) {
		t.Fatalf("second Normalize changed config: %+v vs %+v", *cfg, first)
	}
}
