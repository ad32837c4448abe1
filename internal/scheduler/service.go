package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"claimd/internal/job"
	"claimd/internal/storage"
	"claimd/pkg/logx"
)

// State is the loop's current mode. There is no terminal state: the loop runs
// until the process is killed.
type State int32

const (
	StateRunning State = iota
	StateRecovering
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateRecovering:
		return "recovering"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Invoker runs one external job to completion. *job.Invoker satisfies this;
// tests substitute stubs.
type Invoker interface {
	RunOnce(ctx context.Context, spec job.CommandSpec) (int, error)
}

// DelaySource draws the next inter-cycle delay. *jitter.Generator satisfies
// this.
type DelaySource interface {
	NextDelay() time.Duration
}

type Config struct {
	Spec job.CommandSpec

	// FailureCooldown is the fixed wait after a launch failure. It never
	// escalates and there is no retry cap: launch failures are assumed
	// transient and self-clearing, so the loop retries forever.
	FailureCooldown time.Duration
}

// Service drives the cycle: invoke, log, draw jitter, sleep, repeat.
//
// Everything happens on the single goroutine running Run(); at most one job
// invocation is ever in flight. The only suspension points are the wait for
// the job to terminate and the inter-cycle sleeps, and both yield only to
// context cancellation (process termination).
type Service struct {
	cfg   Config
	inv   Invoker
	delay DelaySource
	store storage.Store // nil when disabled
	log   logx.Logger

	state          atomic.Int32
	cycles         atomic.Uint64
	launchFailures atomic.Uint64
	lastExitStatus atomic.Int64
	nextRunAtUnix  atomic.Int64
}

// Snapshot is a point-in-time view of the loop for the heartbeat. It is an
// observability read, not a synchronization primitive.
type Snapshot struct {
	State          State
	Cycles         uint64
	LaunchFailures uint64
	LastExitStatus int
	NextRunAt      time.Time
}

func New(cfg Config, inv Invoker, delay DelaySource, store storage.Store, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{cfg: cfg, inv: inv, delay: delay, store: store, log: log}
	s.lastExitStatus.Store(-1)
	return s
}

func (s *Service) State() State { return State(s.state.Load()) }

func (s *Service) Snapshot() Snapshot {
	snap := Snapshot{
		State:          s.State(),
		Cycles:         s.cycles.Load(),
		LaunchFailures: s.launchFailures.Load(),
		LastExitStatus: int(s.lastExitStatus.Load()),
	}
	if u := s.nextRunAtUnix.Load(); u != 0 {
		snap.NextRunAt = time.Unix(u, 0)
	}
	return snap
}

// Run loops until ctx is cancelled. It always returns nil: no cycle outcome
// terminates the loop.
func (s *Service) Run(ctx context.Context) error {
	s.log.Info("scheduler started",
		logx.String("command", s.cfg.Spec.Command),
		logx.Duration("failure_cooldown", s.cfg.FailureCooldown),
	)

	for {
		if ctx.Err() != nil {
			s.log.Info("scheduler stopping")
			return nil
		}

		rec, err := s.cycle(ctx)
		if ctx.Err() != nil {
			s.log.Info("scheduler stopping")
			return nil
		}

		if err != nil {
			// Launch failure, or anything else that surfaced during the
			// cycle. The policy is deliberately coarse: one fixed cooldown
			// for every fault kind, then try again.
			s.state.Store(int32(StateRecovering))
			s.launchFailures.Add(1)
			rec.LaunchError = err.Error()
			s.persist(ctx, rec)
			s.log.Error("job launch failed; retrying after cooldown",
				logx.Err(err),
				logx.Duration("cooldown", s.cfg.FailureCooldown),
			)
			if !sleepCtx(ctx, s.cfg.FailureCooldown) {
				s.log.Info("scheduler stopping")
				return nil
			}
			s.state.Store(int32(StateRunning))
			continue
		}

		delay := s.delay.NextDelay()
		next := time.Now().Add(delay)
		rec.NextRunAt = next
		s.nextRunAtUnix.Store(next.Unix())
		s.persist(ctx, rec)

		s.log.Info("next run scheduled",
			logx.Time("next_run_at", next),
			logx.Duration("delay", delay),
		)
		if !sleepCtx(ctx, delay) {
			s.log.Info("scheduler stopping")
			return nil
		}
	}
}

// cycle performs one invocation. A nonzero exit status is a normal outcome
// (the record carries it and err is nil); only a failure to launch, or a
// panic anywhere in the cycle, comes back as err.
func (s *Service) cycle(ctx context.Context) (rec storage.RunRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			if rec.CompletedAt.IsZero() {
				rec.CompletedAt = time.Now()
			}
			err = fmt.Errorf("cycle panic: %v", r)
		}
	}()

	rec.StartedAt = time.Now()
	s.log.Info("starting job run", logx.String("command", s.cfg.Spec.Command))

	code, runErr := s.inv.RunOnce(ctx, s.cfg.Spec)
	rec.CompletedAt = time.Now()
	if runErr != nil {
		return rec, runErr
	}

	rec.ExitStatus = code
	s.cycles.Add(1)
	s.lastExitStatus.Store(int64(code))

	took := rec.CompletedAt.Sub(rec.StartedAt)
	if code == 0 {
		s.log.Info("job run completed", logx.Int("exit_status", code), logx.Duration("took", took))
	} else {
		// The job ran and reported its own failure. For a scraper against a
		// flaky site that is business as usual; the loop proceeds exactly as
		// on success.
		s.log.Warn("job run completed with nonzero exit", logx.Int("exit_status", code), logx.Duration("took", took))
	}
	return rec, nil
}

func (s *Service) persist(ctx context.Context, rec storage.RunRecord) {
	if s.store == nil {
		return
	}
	if err := s.store.AppendRun(ctx, rec); err != nil {
		s.log.Warn("run record not persisted", logx.Err(err))
	}
}

// sleepCtx waits for d or until ctx is cancelled. It reports whether the full
// duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
