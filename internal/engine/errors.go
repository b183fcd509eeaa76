package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/danieljhkim/subsync/internal/gitx"
)

var (
	// ErrNotConverged indicates a scope still had pending changes after apply.
	ErrNotConverged = errors.New("init / deinit failed to converge")

	// ErrValidation indicates an invalid request.
	ErrValidation = errors.New("validation failed")
)

// ReconciliationError reports the residual changeset found when verifying a
// scope after apply. It is never retried.
type ReconciliationError struct {
	Scope    gitx.Scope
	ToInit   []string
	ToDeinit []string
}

func (e *ReconciliationError) Error() string {
	var parts []string
	if len(e.ToInit) > 0 {
		parts = append(parts, "still to init: "+strings.Join(e.ToInit, ", "))
	}
	if len(e.ToDeinit) > 0 {
		parts = append(parts, "still to deinit: "+strings.Join(e.ToDeinit, ", "))
	}
	return fmt.Sprintf("%s in %s (%s)", ErrNotConverged, e.Scope, strings.Join(parts, "; "))
}

func (e *ReconciliationError) Unwrap() error {
	return ErrNotConverged
}

// Failures flattens nested aggregates into the individual failures, in the
// order they were collected.
func Failures(err error) []error {
	if err == nil {
		return nil
	}
	merr, ok := err.(*multierror.Error)
	if !ok {
		return []error{err}
	}
	var out []error
	for _, e := range merr.Errors {
		out = append(out, Failures(e)...)
	}
	return out
}
