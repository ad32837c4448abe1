// Package job launches one run of the external job and reports how it ended.
package job

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"claimd/internal/config"
	"claimd/pkg/logx"
)

// CommandSpec is the fully resolved command for one invocation. WorkingDir is
// passed to the subprocess explicitly; the scheduler process never chdirs.
type CommandSpec struct {
	Command    string
	Args       []string
	WorkingDir string
}

// SpecFromConfig resolves the configured command. The command and args stay
// opaque except for placeholder expansion, so the job can be handed its
// bind-mount directories and env file wherever its CLI expects them:
//
//	{working_dir}  {media_dir}  {data_dir}  {env_file}
func SpecFromConfig(cfg config.JobConfig) CommandSpec {
	repl := strings.NewReplacer(
		"{working_dir}", cfg.WorkingDir,
		"{media_dir}", cfg.MediaDir,
		"{data_dir}", cfg.DataDir,
		"{env_file}", cfg.EnvFile,
	)
	args := make([]string, 0, len(cfg.Args))
	for _, a := range cfg.Args {
		args = append(args, repl.Replace(a))
	}
	return CommandSpec{
		Command:    cfg.Command,
		Args:       args,
		WorkingDir: cfg.WorkingDir,
	}
}

// Invoker runs the external job to completion.
//
// The two outcomes are deliberately distinct:
//   - the job ran and exited nonzero: (code, nil), a normal cycle outcome
//     for a scraper against a flaky site;
//   - the job could not be started at all: (-1, err), an operational fault
//     that sends the loop into its cooldown.
//
// There is no per-invocation timeout. If the job hangs forever the loop hangs
// with it; only process termination interrupts the wait.
type Invoker struct {
	log logx.Logger
}

func NewInvoker(log logx.Logger) *Invoker {
	return &Invoker{log: log}
}

// RunOnce blocks until the job terminates. Job output is inherited: the job
// writes to the scheduler's stdout/stderr directly.
func (v *Invoker) RunOnce(ctx context.Context, spec CommandSpec) (int, error) {
	if strings.TrimSpace(spec.Command) == "" {
		return -1, errors.New("empty job command")
	}

	cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
	cmd.Dir = spec.WorkingDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	v.log.Debug("launching job",
		logx.String("command", spec.Command),
		logx.Int("args", len(spec.Args)),
		logx.String("working_dir", spec.WorkingDir),
	)

	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("start job: %w", err)
	}

	err := cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("wait for job: %w", err)
}
