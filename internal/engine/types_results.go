package engine

import (
	"github.com/danieljhkim/subsync/internal/gitx"
	"github.com/danieljhkim/subsync/internal/planner"
)

// ScopeResult is the outcome of reconciling and updating one scope.
type ScopeResult struct {
	// Scope is the reconciled repository
	Scope gitx.Scope `json:"scope"`

	// Plan is the changeset computed before apply
	Plan *planner.Changeset `json:"plan,omitempty"`

	// Initialized is the sorted list of initialized paths after reconciliation
	Initialized []string `json:"initialized"`

	// Updated is the list of paths updated successfully
	Updated []string `json:"updated"`
}

// RunResult is the outcome of a full sync.
type RunResult struct {
	// Root is the root scope result (nil if planning the root failed)
	Root *ScopeResult `json:"root"`

	// Nested holds nested scope results sorted by scope
	Nested []*ScopeResult `json:"nested"`
}

// ScopePreview is the dry-run view of one scope.
type ScopePreview struct {
	// Scope is the previewed repository
	Scope gitx.Scope `json:"scope"`

	// Changeset is nil while Pending
	Changeset *planner.Changeset `json:"changeset,omitempty"`

	// Pending is true for a nested scope whose parent is not initialized yet
	Pending bool `json:"pending,omitempty"`
}

// PreviewResult lists the root preview followed by nested previews sorted by scope.
type PreviewResult struct {
	Scopes []*ScopePreview `json:"scopes"`
}
