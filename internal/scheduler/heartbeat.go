package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"

	"claimd/pkg/logx"
)

// Heartbeat emits a periodic one-line status summary so an operator tailing
// the log can tell the daemon is alive between (potentially hour-long) runs.
// It only reads loop counters; it never touches loop state.
type Heartbeat struct {
	c    *cron.Cron
	svc  *Service
	log  logx.Logger
	ping func() // optional extra liveness hook (e.g. systemd watchdog)
}

// NewHeartbeat schedules emit() on a standard 5-field cron spec.
func NewHeartbeat(spec string, svc *Service, log logx.Logger, ping func()) (*Heartbeat, error) {
	h := &Heartbeat{c: cron.New(), svc: svc, log: log, ping: ping}
	if _, err := h.c.AddFunc(spec, h.emit); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Heartbeat) Start() { h.c.Start() }

func (h *Heartbeat) Stop(ctx context.Context) {
	stopped := h.c.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
	}
}

func (h *Heartbeat) emit() {
	snap := h.svc.Snapshot()
	fields := []logx.Field{
		logx.String("state", snap.State.String()),
		logx.Uint64("cycles", snap.Cycles),
		logx.Uint64("launch_failures", snap.LaunchFailures),
		logx.Int("last_exit_status", snap.LastExitStatus),
	}
	if !snap.NextRunAt.IsZero() {
		fields = append(fields, logx.Time("next_run_at", snap.NextRunAt))
	}
	h.log.Info("heartbeat", fields...)

	if h.ping != nil {
		h.ping()
	}
}
