// Package app wires the daemon together: config, logging, storage, scheduler.
package app

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"claimd/internal/config"
	"claimd/internal/jitter"
	"claimd/internal/job"
	"claimd/internal/runtime/supervisor"
	"claimd/internal/scheduler"
	"claimd/internal/storage"
	"claimd/pkg/logx"
)

type App struct {
	cfgm    *config.Manager
	initial *config.Config

	// lastLogging is only touched by the config.apply goroutine.
	lastLogging config.LoggingConfig

	logSvc *logx.Service
	log    logx.Logger

	store storage.Store
	sched *scheduler.Service
	hb    *scheduler.Heartbeat

	sup *supervisor.Supervisor
}

// New loads the config and builds every component. Errors here are startup
// faults, the only class of fault that may exit the process.
func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// Provision the job's directories before anything opens files in them.
	for _, dir := range []string{cfg.Job.WorkingDir, cfg.Job.MediaDir, cfg.Job.DataDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %q: %w", dir, err)
		}
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.ConsoleEnabled(),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.FileEnabled(),
			Path:    cfg.Logging.File.Path,
		},
	})
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	cooldown, err := config.ParseDurationField("schedule.failure_cooldown", cfg.Schedule.FailureCooldown)
	if err != nil {
		return nil, err
	}

	var store storage.Store
	if cfg.Storage != nil {
		busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
		if err != nil {
			return nil, err
		}
		store, err = storage.Open(storage.Config{
			Driver:      cfg.Storage.Driver,
			Path:        cfg.Storage.Path,
			BusyTimeout: busy,
		}, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
	}

	gen := jitter.New(cfg.Schedule.MinIntervalMinutes, cfg.Schedule.MaxIntervalMinutes)
	inv := job.NewInvoker(log.With(logx.String("comp", "invoker")))

	sched := scheduler.New(scheduler.Config{
		Spec:            job.SpecFromConfig(cfg.Job),
		FailureCooldown: cooldown,
	}, inv, gen, store, log.With(logx.String("comp", "scheduler")))

	var hb *scheduler.Heartbeat
	if cfg.Heartbeat.HeartbeatEnabled() {
		hb, err = scheduler.NewHeartbeat(cfg.Heartbeat.Spec, sched,
			log.With(logx.String("comp", "heartbeat")), nil)
		if err != nil {
			return nil, fmt.Errorf("heartbeat spec %q: %w", cfg.Heartbeat.Spec, err)
		}
	}

	return &App{
		cfgm:        cfgm,
		initial:     cfg,
		lastLogging: cfg.Logging,
		logSvc:      logSvc,
		log:         log.With(logx.String("comp", "app")),
		store:       store,
		sched:       sched,
		hb:          hb,
	}, nil
}

// Scheduler exposes the loop for tests and diagnostics.
func (a *App) Scheduler() *scheduler.Service { return a.sched }

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log))

	a.sup.Go("scheduler.loop", a.sched.Run)
	a.sup.Go("config.watch", a.cfgm.Watch)
	a.sup.Go("config.apply", a.applyConfigUpdates)

	if a.hb != nil {
		a.hb.Start()
	}

	// Under systemd, report readiness and keep the watchdog fed. Both are
	// no-ops elsewhere.
	if interval, err := daemon.SdWatchdogEnabled(false); err == nil && interval > 0 {
		a.sup.Go("systemd.watchdog", func(ctx context.Context) error {
			return feedWatchdog(ctx, interval/2)
		})
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	a.log.Info("claimd started", logx.String("config", a.cfgm.Path()))
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	if a.hb != nil {
		a.hb.Stop(ctx)
	}
	err := a.sup.Stop(ctx)

	if a.store != nil {
		_ = a.store.Close()
	}
	a.log.Info("claimd stopped")
	_ = a.logSvc.Close()
	return err
}

// applyConfigUpdates hot-applies the logging section of a changed config.
// Schedule and job settings are immutable for the process lifetime: a change
// there gets a "restart required" notice and nothing else.
func (a *App) applyConfigUpdates(ctx context.Context) error {
	ch := a.cfgm.Subscribe(4)
	defer a.cfgm.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg, ok := <-ch:
			if !ok || cfg == nil {
				return nil
			}
			if !reflect.DeepEqual(cfg.Schedule, a.initial.Schedule) ||
				!reflect.DeepEqual(cfg.Job, a.initial.Job) {
				a.log.Warn("schedule/job config changed on disk; restart required to apply")
			}
			if !reflect.DeepEqual(cfg.Logging, a.lastLogging) {
				a.logSvc.Apply(logx.Config{
					Level:   cfg.Logging.Level,
					Console: cfg.Logging.ConsoleEnabled(),
					File: logx.FileConfig{
						Enabled: cfg.Logging.File.FileEnabled(),
						Path:    cfg.Logging.File.Path,
					},
				})
				a.lastLogging = cfg.Logging
				a.log.Info("logging config reapplied", logx.String("level", cfg.Logging.Level))
			}
		}
	}
}

func feedWatchdog(ctx context.Context, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}
