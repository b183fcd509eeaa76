package engine

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/danieljhkim/subsync/internal/gitx"
	"github.com/danieljhkim/subsync/internal/planner"
)

// plan inspects scope and computes its changeset against desired.
func (e *Engine) plan(ctx context.Context, scope gitx.Scope, desired []string) (*planner.Changeset, []string, error) {
	available, err := e.repo.AvailablePaths(ctx, scope)
	if err != nil {
		return nil, nil, err
	}
	names, err := e.repo.InitializedNames(ctx, scope)
	if err != nil {
		return nil, nil, err
	}
	return planner.Plan(desired, available, planner.InitializedPaths(available, names)), names, nil
}

// Reconcile brings the initialized submodules of scope in line with desired.
//
// Algorithm steps:
// 1. Plan: inspect state and compute the changeset
// 2. Apply: init and deinit every path concurrently, collecting all failures
// 3. Verify: plan again; a residual changeset is a ReconciliationError
//
// The returned result is non-nil whenever planning succeeded.
func (e *Engine) Reconcile(ctx context.Context, scope gitx.Scope, desired []string) (*ScopeResult, error) {
	cs, names, err := e.plan(ctx, scope, desired)
	if err != nil {
		return nil, fmt.Errorf("failed to plan %s: %w", scope, err)
	}

	e.logger.Info().
		Str("scope", scope.String()).
		Strs("available", cs.Available.Paths()).
		Strs("initialized", names).
		Strs("to_init", cs.ToInit).
		Strs("to_deinit", cs.ToDeinit).
		Msg("Computed changeset")

	result := &ScopeResult{
		Scope:       scope,
		Plan:        cs,
		Initialized: cs.InitializedPaths(),
	}
	if cs.Converged() {
		return result, nil
	}

	var g multierror.Group
	for _, path := range cs.ToInit {
		g.Go(func() error {
			return e.observe(opInit, scope, path, e.repo.Init(ctx, scope, path))
		})
	}
	for _, path := range cs.ToDeinit {
		g.Go(func() error {
			return e.observe(opDeinit, scope, path, e.repo.Deinit(ctx, scope, path))
		})
	}
	applyErr := g.Wait().ErrorOrNil()

	after, _, err := e.plan(ctx, scope, desired)
	if err != nil {
		return result, multierror.Append(applyErr, fmt.Errorf("failed to verify %s: %w", scope, err))
	}
	result.Initialized = after.InitializedPaths()

	if !after.Converged() {
		verr := &ReconciliationError{Scope: scope, ToInit: after.ToInit, ToDeinit: after.ToDeinit}
		e.metrics.ObserveOperation(opVerify, verr)
		return result, multierror.Append(applyErr, verr)
	}
	e.metrics.ObserveOperation(opVerify, nil)

	if applyErr != nil {
		return result, applyErr
	}
	return result, nil
}

// Update shallow-updates every path in scope concurrently. All updates run
// to completion; the returned slice lists the paths that succeeded.
func (e *Engine) Update(ctx context.Context, scope gitx.Scope, paths []string) ([]string, error) {
	ok := make([]bool, len(paths))

	var g multierror.Group
	for i, path := range paths {
		g.Go(func() error {
			err := e.observe(opUpdate, scope, path, e.repo.Update(ctx, scope, path))
			ok[i] = err == nil
			return err
		})
	}
	err := g.Wait().ErrorOrNil()

	updated := make([]string, 0, len(paths))
	for i, path := range paths {
		if ok[i] {
			updated = append(updated, path)
		}
	}
	return updated, err
}

// Sync reconciles scope and then updates its initialized submodules.
// Update is skipped when reconciliation failed.
func (e *Engine) Sync(ctx context.Context, scope gitx.Scope, desired []string) (*ScopeResult, error) {
	result, err := e.Reconcile(ctx, scope, desired)
	if err != nil {
		return result, err
	}

	result.Updated, err = e.Update(ctx, scope, result.Initialized)
	if err != nil {
		return result, err
	}

	e.logger.Info().
		Str("scope", scope.String()).
		Int("updated", len(result.Updated)).
		Msg("Scope synchronized")
	return result, nil
}

// observe records the outcome of one submodule operation and adds context
// to its error.
func (e *Engine) observe(op string, scope gitx.Scope, path string, err error) error {
	e.metrics.ObserveOperation(op, err)
	if err != nil {
		e.logger.Debug().Err(err).Str("op", op).Str("scope", scope.String()).Str("path", path).Msg("Operation failed")
		return fmt.Errorf("failed to %s %s in %s: %w", op, path, scope, err)
	}
	return nil
}
