package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/danieljhkim/subsync/internal/clock"
	"github.com/danieljhkim/subsync/internal/execx"
	"github.com/danieljhkim/subsync/internal/logging"
	"github.com/danieljhkim/subsync/internal/metrics"
)

// ExhaustedError is returned when a command kept failing transiently until
// the policy ran out of attempts. It unwraps to the last
// *execx.ExternalCommandError.
type ExhaustedError struct {
	Attempts int
	Err      *execx.ExternalCommandError
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a transient failure that exhausted its retries.
func IsTransient(err error) bool {
	var exhausted *ExhaustedError
	return errors.As(err, &exhausted)
}

// Caller runs commands through a Runner and retries transient failures.
type Caller struct {
	runner  execx.Runner
	clock   clock.Clock
	logger  zerolog.Logger
	metrics *metrics.Recorder
}

// NewCaller creates a new Caller.
func NewCaller(runner execx.Runner, clk clock.Clock, rec *metrics.Recorder) *Caller {
	return &Caller{
		runner:  runner,
		clock:   clk,
		logger:  logging.GetLogger("retry"),
		metrics: rec,
	}
}

// Call runs cmd unchecked. A nonzero exit whose stderr the policy deems
// transient is retried after policy.Delay, for at most policy.MaxAttempts()
// runs in total. When checked is true, a final nonzero exit is returned as
// an error: *ExhaustedError for transient failures, *execx.ExternalCommandError
// otherwise.
func (c *Caller) Call(ctx context.Context, cmd execx.Command, policy Policy, checked bool) (execx.Result, error) {
	var (
		res       execx.Result
		attempts  int
		transient bool
	)

	operation := func() error {
		attempts++
		var err error
		res, err = c.runner.Run(ctx, cmd, false)
		if err != nil {
			return backoff.Permanent(err)
		}
		if res.Status == 0 {
			return nil
		}

		cmdErr := execx.NewExternalCommandError(cmd, res)
		transient = policy.Transient(res.Stderr)
		if !transient {
			return backoff.Permanent(cmdErr)
		}
		return cmdErr
	}

	notify := func(err error, delay time.Duration) {
		c.logger.Info().
			Str("cmd", cmd.String()).
			Int("attempt", attempts).
			Dur("delay", delay).
			Msg("WAIT transient failure, retrying")
		c.metrics.IncRetry()
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(policy.Delay), uint64(policy.MaxRetries)),
		ctx,
	)
	err := backoff.RetryNotifyWithTimer(operation, b, notify, newClockTimer(ctx, c.clock))
	if err == nil {
		return res, nil
	}

	var cmdErr *execx.ExternalCommandError
	if !errors.As(err, &cmdErr) {
		return res, err
	}
	if !checked {
		return res, nil
	}
	if transient {
		return res, &ExhaustedError{Attempts: attempts, Err: cmdErr}
	}
	return res, cmdErr
}

// clockTimer adapts a clock.Clock to backoff.Timer. Start waits on the
// clock and then fires; a wait cut short by ctx never fires, leaving the
// retry loop to observe ctx.Done.
type clockTimer struct {
	ctx   context.Context
	clock clock.Clock
	c     chan time.Time
}

func newClockTimer(ctx context.Context, clk clock.Clock) *clockTimer {
	return &clockTimer{ctx: ctx, clock: clk, c: make(chan time.Time, 1)}
}

func (t *clockTimer) Start(d time.Duration) {
	if err := t.clock.Sleep(t.ctx, d); err != nil {
		return
	}
	t.c <- t.clock.Now()
}

func (t *clockTimer) Stop() {}

func (t *clockTimer) C() <-chan time.Time {
	return t.c
}
