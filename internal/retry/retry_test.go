package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danieljhkim/subsync/internal/clock"
	"github.com/danieljhkim/subsync/internal/execx"
	"github.com/danieljhkim/subsync/internal/metrics"
)

var lockCmd = execx.Command{Name: "git", Args: []string{"submodule", "init", "external/fmt"}}

const lockStderr = "error: could not lock config file '.git/config': File exists"

func newTestCaller() (*Caller, *execx.FakeRunner, *clock.FakeClock) {
	runner := execx.NewFakeRunner()
	clk := clock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return NewCaller(runner, clk, metrics.New()), runner, clk
}

func TestPolicy_Transient(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		name   string
		stderr string
		want   bool
	}{
		{"config lock with file exists", lockStderr, true},
		{"config lock bare", "fatal: could not lock config file .git/modules/x/config", true},
		{"permission race", "fatal: unable to access '/repo/.gitmodules': Permission denied", true},
		{"config read race", "fatal: unknown error occurred while reading the configuration files", true},
		{"unrelated failure", "fatal: repository 'x' does not exist", false},
		{"empty stderr", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Transient(tt.stderr))
		})
	}
}

func TestMatchers(t *testing.T) {
	assert.True(t, Contains("locked")("config locked by another process"))
	assert.False(t, Contains("locked")("ok"))

	m, err := Regexp(`^fatal: \d+$`)
	require.NoError(t, err)
	assert.True(t, m("fatal: 42"))
	assert.False(t, m("fatal: x"))

	_, err = Regexp("(")
	assert.Error(t, err)
	assert.Panics(t, func() { MustRegexp("(") })
}

func TestNewPolicy(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		p, err := NewPolicy([]string{"busy"}, 2, time.Second)
		require.NoError(t, err)
		assert.Equal(t, 3, p.MaxAttempts())
		assert.True(t, p.Transient("resource busy"))
	})

	t.Run("invalid pattern", func(t *testing.T) {
		_, err := NewPolicy([]string{"["}, 2, time.Second)
		assert.Error(t, err)
	})

	t.Run("negative retries", func(t *testing.T) {
		_, err := NewPolicy(nil, -1, time.Second)
		assert.Error(t, err)
	})

	t.Run("negative delay", func(t *testing.T) {
		_, err := NewPolicy(nil, 1, -time.Second)
		assert.Error(t, err)
	})
}

func TestCall_SucceedsFirstTry(t *testing.T) {
	caller, runner, clk := newTestCaller()
	runner.On(lockCmd.String(), execx.Result{Stdout: "ok"})

	res, err := caller.Call(context.Background(), lockCmd, DefaultPolicy(), true)

	require.NoError(t, err)
	assert.Equal(t, "ok", res.Stdout)
	assert.Equal(t, 1, runner.CallCount(lockCmd.String()))
	assert.Empty(t, clk.Sleeps())
}

func TestCall_RecoversFromTransientFailure(t *testing.T) {
	caller, runner, clk := newTestCaller()
	runner.On(lockCmd.String(),
		execx.Result{Status: 255, Stderr: lockStderr},
		execx.Result{Status: 255, Stderr: lockStderr},
		execx.Result{Stdout: "done"},
	)

	res, err := caller.Call(context.Background(), lockCmd, DefaultPolicy(), true)

	require.NoError(t, err)
	assert.Equal(t, "done", res.Stdout)
	assert.Equal(t, 3, runner.CallCount(lockCmd.String()))
	assert.Equal(t, []time.Duration{DefaultDelay, DefaultDelay}, clk.Sleeps())
}

func TestCall_RetriesPermissionRace(t *testing.T) {
	for _, path := range []string{
		".git/modules/external/fmt/config",
		"/home/u/.config/git/config",
		"/repo/.gitmodules",
	} {
		t.Run(path, func(t *testing.T) {
			caller, runner, clk := newTestCaller()
			runner.On(lockCmd.String(),
				execx.Result{Status: 128, Stderr: fmt.Sprintf("fatal: unable to access '%s': Permission denied", path)},
				execx.Result{Stdout: "done"},
			)

			res, err := caller.Call(context.Background(), lockCmd, DefaultPolicy(), true)

			require.NoError(t, err)
			assert.Equal(t, "done", res.Stdout)
			assert.Equal(t, 2, runner.CallCount(lockCmd.String()))
			assert.Equal(t, []time.Duration{DefaultDelay}, clk.Sleeps())
		})
	}
}

func TestCall_RetryBound(t *testing.T) {
	for _, maxRetries := range []int{0, 1, 3, 5} {
		t.Run(fmt.Sprintf("max_retries=%d", maxRetries), func(t *testing.T) {
			caller, runner, clk := newTestCaller()
			runner.On(lockCmd.String(), execx.Result{Status: 255, Stderr: lockStderr})

			policy := DefaultPolicy()
			policy.MaxRetries = maxRetries

			_, err := caller.Call(context.Background(), lockCmd, policy, true)

			require.Error(t, err)
			assert.Equal(t, maxRetries+1, runner.CallCount(lockCmd.String()), "total attempts")
			assert.Len(t, clk.Sleeps(), maxRetries)
			assert.True(t, IsTransient(err))

			var cmdErr *execx.ExternalCommandError
			require.True(t, errors.As(err, &cmdErr))
			assert.Equal(t, 255, cmdErr.Status)

			var exhausted *ExhaustedError
			require.True(t, errors.As(err, &exhausted))
			assert.Equal(t, maxRetries+1, exhausted.Attempts)
		})
	}
}

func TestCall_FatalFailureIsNotRetried(t *testing.T) {
	caller, runner, clk := newTestCaller()
	runner.On(lockCmd.String(), execx.Result{Status: 1, Stderr: "fatal: no submodule mapping found"})

	_, err := caller.Call(context.Background(), lockCmd, DefaultPolicy(), true)

	require.Error(t, err)
	assert.False(t, IsTransient(err))
	assert.True(t, errors.Is(err, execx.ErrCommandFailed))
	assert.Equal(t, 1, runner.CallCount(lockCmd.String()))
	assert.Empty(t, clk.Sleeps())
}

func TestCall_Unchecked(t *testing.T) {
	t.Run("fatal failure returns result without error", func(t *testing.T) {
		caller, runner, _ := newTestCaller()
		runner.On(lockCmd.String(), execx.Result{Status: 1, Stderr: "nope"})

		res, err := caller.Call(context.Background(), lockCmd, DefaultPolicy(), false)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Status)
	})

	t.Run("exhausted transient failure returns result without error", func(t *testing.T) {
		caller, runner, _ := newTestCaller()
		runner.On(lockCmd.String(), execx.Result{Status: 255, Stderr: lockStderr})

		policy := DefaultPolicy()
		policy.MaxRetries = 2
		res, err := caller.Call(context.Background(), lockCmd, policy, false)
		require.NoError(t, err)
		assert.Equal(t, 255, res.Status)
		assert.Equal(t, 3, runner.CallCount(lockCmd.String()))
	})
}

func TestCall_SuccessIsNeverRetried(t *testing.T) {
	caller, runner, _ := newTestCaller()
	// A warning that happens to match a pattern must not trigger a retry on success.
	runner.On(lockCmd.String(), execx.Result{Status: 0, Stderr: lockStderr})

	_, err := caller.Call(context.Background(), lockCmd, DefaultPolicy(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, runner.CallCount(lockCmd.String()))
}

func TestCall_CancelledDuringDelay(t *testing.T) {
	runner := execx.NewFakeRunner()
	runner.On(lockCmd.String(), execx.Result{Status: 255, Stderr: lockStderr})
	caller := NewCaller(runner, &clock.RealClock{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	policy := DefaultPolicy()
	policy.Delay = time.Hour
	_, err := caller.Call(ctx, lockCmd, policy, true)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, runner.CallCount(lockCmd.String()))
}

func TestCall_CancelledBeforeStart(t *testing.T) {
	caller, runner, clk := newTestCaller()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := caller.Call(ctx, lockCmd, DefaultPolicy(), true)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsTransient(err))
	assert.Zero(t, runner.CallCount(lockCmd.String()))
	assert.Empty(t, clk.Sleeps())
}
