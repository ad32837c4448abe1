package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"claimd/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Runs are appended as JSON Lines to <path>. The file is never rewritten, so
// a crash mid-append loses at most the final partial line, which reads skip.
type fileStore struct {
	log logx.Logger

	mu   sync.Mutex
	file *os.File
	path string
}

type runRow struct {
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	ExitStatus  int       `json:"exit_status"`
	LaunchError string    `json:"launch_error,omitempty"`
	NextRunAt   time.Time `json:"next_run_at,omitempty"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("file storage path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &fileStore{log: log, file: f, path: path}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func (s *fileStore) AppendRun(_ context.Context, r RunRecord) error {
	row := runRow{
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		ExitStatus:  r.ExitStatus,
		LaunchError: r.LaunchError,
		NextRunAt:   r.NextRunAt,
	}
	b, err := json.Marshal(row)
	if err != nil {
		return err
	}
	b = append(b, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return ErrDisabled
	}
	_, err = s.file.Write(b)
	return err
}

func (s *fileStore) RecentRuns(_ context.Context, n int) ([]RunRecord, error) {
	if n <= 0 {
		return nil, nil
	}

	s.mu.Lock()
	path := s.path
	closed := s.file == nil
	s.mu.Unlock()
	if closed {
		return nil, ErrDisabled
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var all []RunRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var row runRow
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			// partial trailing line from a crash mid-append
			continue
		}
		all = append(all, RunRecord{
			StartedAt:   row.StartedAt,
			CompletedAt: row.CompletedAt,
			ExitStatus:  row.ExitStatus,
			LaunchError: row.LaunchError,
			NextRunAt:   row.NextRunAt,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}
