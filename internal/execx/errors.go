package execx

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCommandFailed matches any *ExternalCommandError via errors.Is.
var ErrCommandFailed = errors.New("external command failed")

// ExternalCommandError reports a command that exited with a nonzero status.
type ExternalCommandError struct {
	// Command is the rendered command line
	Command string

	// Status is the exit status (127 when the executable could not be started)
	Status int

	// Stdout and Stderr are the captured output streams
	Stdout string
	Stderr string

	// Cause is the underlying start error, if any
	Cause error
}

func (e *ExternalCommandError) Error() string {
	msg := fmt.Sprintf("command %q exited with status %d", e.Command, e.Status)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *ExternalCommandError) Unwrap() error {
	return e.Cause
}

func (e *ExternalCommandError) Is(target error) bool {
	return target == ErrCommandFailed
}

// NewExternalCommandError builds the error for a finished command.
func NewExternalCommandError(cmd Command, res Result) *ExternalCommandError {
	return &ExternalCommandError{
		Command: cmd.String(),
		Status:  res.Status,
		Stdout:  res.Stdout,
		Stderr:  res.Stderr,
	}
}
