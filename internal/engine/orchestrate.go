package engine

import (
	"context"
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/hashicorp/go-multierror"

	"github.com/danieljhkim/subsync/internal/gitx"
)

// nestedScopes returns the sorted nested parents whose parent is desired at the root.
func nestedScopes(req *SyncRequest) []gitx.Scope {
	desired := mapset.NewThreadUnsafeSet(req.Modules...)

	var out []gitx.Scope
	for parent := range req.Nested {
		if desired.Contains(parent) {
			out = append(out, gitx.Scope(parent))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func validate(req *SyncRequest) error {
	if req == nil {
		return fmt.Errorf("%w: nil request", ErrValidation)
	}
	for parent := range req.Nested {
		if gitx.Scope(parent).IsRoot() {
			return fmt.Errorf("%w: nested parent must be a submodule path", ErrValidation)
		}
	}
	return nil
}

// Run synchronizes the root scope and then every eligible nested scope.
//
// The root completes before any nested scope starts, and a root failure
// stops the run. Nested scopes run concurrently and their failures are
// aggregated without cancelling siblings.
func (e *Engine) Run(ctx context.Context, req *SyncRequest) (*RunResult, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	root, err := e.Sync(ctx, gitx.RootScope, req.Modules)
	result := &RunResult{Root: root}
	if err != nil {
		return result, err
	}

	scopes := nestedScopes(req)
	nested := make([]*ScopeResult, len(scopes))

	var g multierror.Group
	for i, scope := range scopes {
		g.Go(func() error {
			res, err := e.Sync(ctx, scope, req.Nested[string(scope)])
			nested[i] = res
			return err
		})
	}
	err = g.Wait().ErrorOrNil()

	for _, res := range nested {
		if res != nil {
			result.Nested = append(result.Nested, res)
		}
	}
	return result, err
}

// Preview computes the changesets Run would apply, without changing anything.
// Nested scopes whose parent is not initialized yet are reported as pending.
func (e *Engine) Preview(ctx context.Context, req *SyncRequest) (*PreviewResult, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	root, _, err := e.plan(ctx, gitx.RootScope, req.Modules)
	if err != nil {
		return nil, fmt.Errorf("failed to plan %s: %w", gitx.RootScope, err)
	}

	result := &PreviewResult{Scopes: []*ScopePreview{{Scope: gitx.RootScope, Changeset: root}}}
	ready := mapset.NewThreadUnsafeSet(root.InitializedPaths()...)

	var errs *multierror.Error
	for _, scope := range nestedScopes(req) {
		if !ready.Contains(string(scope)) {
			result.Scopes = append(result.Scopes, &ScopePreview{Scope: scope, Pending: true})
			continue
		}
		cs, _, err := e.plan(ctx, scope, req.Nested[string(scope)])
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("failed to plan %s: %w", scope, err))
			continue
		}
		result.Scopes = append(result.Scopes, &ScopePreview{Scope: scope, Changeset: cs})
	}
	return result, errs.ErrorOrNil()
}
