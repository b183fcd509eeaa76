package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/danieljhkim/subsync/internal/logging"
	"github.com/danieljhkim/subsync/internal/metrics"
)

// DefaultConcurrency is the number of external processes allowed to run at once.
const DefaultConcurrency = 8

// statusNotStarted is reported when the executable could not be started.
const statusNotStarted = 127

// Command describes one external process invocation.
type Command struct {
	// Name is the executable
	Name string

	// Args are passed verbatim, without shell interpretation
	Args []string

	// Dir is the working directory (empty for the current directory)
	Dir string

	// Quiet demotes the command's log output from debug to trace
	Quiet bool
}

// String renders the command line, quoting arguments that need it.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, arg := range c.Args {
		if arg == "" || strings.ContainsAny(arg, " \t\n\"'") {
			arg = strconv.Quote(arg)
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

// Result is the captured outcome of one command.
type Result struct {
	Stdout string
	Stderr string
	Status int
}

// Runner executes external commands.
type Runner interface {
	// Run executes cmd and waits for it to exit. When checked is true a
	// nonzero exit status is returned as *ExternalCommandError alongside
	// the captured result.
	Run(ctx context.Context, cmd Command, checked bool) (Result, error)
}

// NewRunner returns the production runner: real processes behind a limiter
// of the given capacity.
func NewRunner(concurrency int, rec *metrics.Recorder) Runner {
	return NewLimitedRunner(NewExecRunner(rec), concurrency)
}

// ExecRunner spawns real processes with os/exec.
type ExecRunner struct {
	logger  zerolog.Logger
	metrics *metrics.Recorder
}

// NewExecRunner creates a new ExecRunner.
func NewExecRunner(rec *metrics.Recorder) *ExecRunner {
	return &ExecRunner{
		logger:  logging.GetLogger("execx"),
		metrics: rec,
	}
}

// Run starts the process and captures both output streams fully.
// The process is not killed when ctx is cancelled; ctx only prevents a
// command from starting.
func (r *ExecRunner) Run(ctx context.Context, cmd Command, checked bool) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	start := time.Now()

	c := exec.Command(cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	status, startErr := exitStatus(c.Run())

	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
		Status: status,
	}
	if startErr != nil && res.Stderr == "" {
		res.Stderr = startErr.Error()
	}

	r.metrics.ObserveCommand(res.Status, startErr, time.Since(start))
	r.logResult(cmd, res)

	if checked && res.Status != 0 {
		cmdErr := NewExternalCommandError(cmd, res)
		cmdErr.Cause = startErr
		return res, cmdErr
	}
	return res, nil
}

func (r *ExecRunner) logResult(cmd Command, res Result) {
	level := zerolog.DebugLevel
	if cmd.Quiet {
		level = zerolog.TraceLevel
	}

	ev := r.logger.WithLevel(level).
		Str("cmd", cmd.String()).
		Int("status", res.Status)
	if cmd.Dir != "" {
		ev = ev.Str("dir", cmd.Dir)
	}
	if out := strings.TrimSpace(res.Stdout); out != "" {
		ev = ev.Str("stdout", out)
	}
	if errOut := strings.TrimSpace(res.Stderr); errOut != "" {
		ev = ev.Str("stderr", errOut)
	}
	ev.Msg("CALL")
}

// exitStatus maps the error from (*exec.Cmd).Run to an exit status. The
// returned error is non-nil only when the process never ran.
func exitStatus(err error) (int, error) {
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}

	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return statusNotStarted, err
	}
	return 1, err
}

// LimitedRunner bounds the number of in-flight commands of the wrapped runner.
type LimitedRunner struct {
	inner Runner
	sem   *semaphore.Weighted
}

// NewLimitedRunner wraps inner with a limiter of the given capacity.
// A capacity below one falls back to DefaultConcurrency.
func NewLimitedRunner(inner Runner, capacity int) *LimitedRunner {
	if capacity < 1 {
		capacity = DefaultConcurrency
	}
	return &LimitedRunner{
		inner: inner,
		sem:   semaphore.NewWeighted(int64(capacity)),
	}
}

// Run waits for a free slot, then delegates. The slot is released on every
// return path.
func (l *LimitedRunner) Run(ctx context.Context, cmd Command, checked bool) (Result, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return Result{}, fmt.Errorf("failed to acquire process slot: %w", err)
	}
	defer l.sem.Release(1)

	return l.inner.Run(ctx, cmd, checked)
}
