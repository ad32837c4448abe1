package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures the run-history store.
//
// Driver values:
//   - "file": dependency-free file backend (append-only jsonl)
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled and run records live only
// in the log stream.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// RunRecord captures one scheduler cycle. Keep it compact and schema-stable.
//
// Exactly one of ExitStatus / LaunchError is meaningful: a run that launched
// has an exit status (zero or not), a run that never launched has the error.
type RunRecord struct {
	StartedAt   time.Time
	CompletedAt time.Time
	ExitStatus  int
	LaunchError string
	NextRunAt   time.Time
}

// Launched reports whether the job process actually started.
func (r RunRecord) Launched() bool { return r.LaunchError == "" }
