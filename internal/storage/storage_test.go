package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"claimd/pkg/logx"
)

func sampleRuns(n int) []RunRecord {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	out := make([]RunRecord, 0, n)
	for i := 0; i < n; i++ {
		start := base.Add(time.Duration(i) * time.Hour)
		rec := RunRecord{
			StartedAt:   start,
			CompletedAt: start.Add(90 * time.Second),
			ExitStatus:  i % 2,
			NextRunAt:   start.Add(75 * time.Minute),
		}
		if i%3 == 2 {
			rec = RunRecord{
				StartedAt:   start,
				CompletedAt: start,
				ExitStatus:  0,
				LaunchError: "start job: executable not found",
			}
		}
		out = append(out, rec)
	}
	return out
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", "NONE"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("driver %q: %v", driver, err)
		}
		if st != nil {
			t.Fatalf("driver %q: expected nil store", driver)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "postgres"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		cfg  func(dir string) Config
	}{
		{
			name: "file",
			cfg: func(dir string) Config {
				return Config{Driver: "file", Path: filepath.Join(dir, "runs.jsonl")}
			},
		},
		{
			name: "sqlite",
			cfg: func(dir string) Config {
				return Config{Driver: "sqlite", Path: filepath.Join(dir, "runs.db"), BusyTimeout: 200 * time.Millisecond}
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			st, err := Open(tt.cfg(t.TempDir()), logx.Nop())
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer st.Close()

			want := sampleRuns(5)
			for _, r := range want {
				if err := st.AppendRun(ctx, r); err != nil {
					t.Fatalf("AppendRun: %v", err)
				}
			}

			got, err := st.RecentRuns(ctx, 3)
			if err != nil {
				t.Fatalf("RecentRuns: %v", err)
			}
			if len(got) != 3 {
				t.Fatalf("RecentRuns len = %d, want 3", len(got))
			}
			// oldest-first tail of the appended sequence
			for i, rec := range got {
				src := want[len(want)-3+i]
				if !rec.StartedAt.Equal(src.StartedAt) {
					t.Fatalf("record %d started_at = %v, want %v", i, rec.StartedAt, src.StartedAt)
				}
				if rec.ExitStatus != src.ExitStatus || rec.LaunchError != src.LaunchError {
					t.Fatalf("record %d = %+v, want %+v", i, rec, src)
				}
				if rec.Launched() != (src.LaunchError == "") {
					t.Fatalf("record %d Launched() mismatch", i)
				}
			}
		})
	}
}

func TestFileStoreAppendsAcrossReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.jsonl")

	st1, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := st1.AppendRun(ctx, sampleRuns(1)[0]); err != nil {
		t.Fatalf("AppendRun: %v", err)
	}
	_ = st1.Close()

	st2, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()
	if err := st2.AppendRun(ctx, sampleRuns(2)[1]); err != nil {
		t.Fatalf("AppendRun after reopen: %v", err)
	}

	got, err := st2.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("records after reopen = %d, want 2 (file must append, not truncate)", len(got))
	}
}
