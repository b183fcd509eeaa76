package engine

import (
	"context"
	"fmt"

	"github.com/danieljhkim/subsync/internal/gitx"
)

// Status returns the `git submodule` status records of scope.
func (e *Engine) Status(ctx context.Context, scope gitx.Scope) ([]gitx.Record, error) {
	records, err := e.repo.StatusLines(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to get status of %s: %w", scope, err)
	}
	return records, nil
}
