package execx

import (
	"context"
	"sync"
	"time"
)

// FakeRunner implements Runner with scripted results for testing.
// Safe for concurrent use.
type FakeRunner struct {
	mu        sync.Mutex
	responses map[string][]Result
	handler   func(Command) Result
	delay     time.Duration
	calls     []Command
	inFlight  int
	peak      int
}

// NewFakeRunner creates a FakeRunner that answers unknown commands with an
// empty successful result.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{responses: make(map[string][]Result)}
}

// On queues results for the command line cmdline (as rendered by
// Command.String). Results are consumed in order; the last one repeats.
func (f *FakeRunner) On(cmdline string, results ...Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[cmdline] = append(f.responses[cmdline], results...)
}

// Handle installs a fallback for commands without queued results.
func (f *FakeRunner) Handle(fn func(Command) Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = fn
}

// SetDelay makes every Run block for d, to exercise concurrency.
func (f *FakeRunner) SetDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

// Run records the call and returns the scripted result.
func (f *FakeRunner) Run(ctx context.Context, cmd Command, checked bool) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.inFlight++
	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	delay := f.delay
	res, ok := f.next(cmd.String())
	handler := f.handler
	f.mu.Unlock()

	if !ok && handler != nil {
		res = handler(cmd)
	}
	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if checked && res.Status != 0 {
		return res, NewExternalCommandError(cmd, res)
	}
	return res, nil
}

func (f *FakeRunner) next(cmdline string) (Result, bool) {
	queue := f.responses[cmdline]
	if len(queue) == 0 {
		return Result{}, false
	}
	res := queue[0]
	if len(queue) > 1 {
		f.responses[cmdline] = queue[1:]
	}
	return res, true
}

// Calls returns every command run so far, in call order.
func (f *FakeRunner) Calls() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Command, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many times cmdline was run.
func (f *FakeRunner) CallCount(cmdline string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.String() == cmdline {
			n++
		}
	}
	return n
}

// Peak returns the highest number of concurrent Run calls observed.
func (f *FakeRunner) Peak() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak
}
